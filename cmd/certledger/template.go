package main

import (
	"encoding/json"
	"fmt"

	"certledger.dev/certledger/model"
)

// defaultTemplate stacks the four fields down the left side of the
// canvas, enough for smoke tests without an authored template.
func defaultTemplate() model.TemplateConfig {
	fields := make(map[model.FieldKey]model.FieldStyle, len(model.FieldKeys))
	for i, k := range model.FieldKeys {
		fields[k] = model.FieldStyle{
			Left:      60,
			Top:       float64(180 + i*70),
			FontSize:  28,
			FillColor: "#1a1a1a",
		}
	}
	return model.TemplateConfig{Fields: fields}
}

func parseTemplate(data []byte) (model.TemplateConfig, error) {
	var cfg model.TemplateConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return model.TemplateConfig{}, err
	}
	if !cfg.Complete() {
		return model.TemplateConfig{}, fmt.Errorf("template must place all of: %v", model.FieldKeys)
	}
	return cfg, nil
}
