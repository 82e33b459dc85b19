package project

import (
	"encoding/json"

	"certledger.dev/certledger/model"
)

// Export serializes one project as indented JSON suitable for backup or
// transfer to another machine.
func (s *Store) Export(id string) ([]byte, error) {
	p, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(p, "", "  ")
}

// Import adds an exported project to this store under a fresh id. The
// name is suffixed so an import next to the original is distinguishable.
// Certificates come along verbatim; their ledger ids stay valid because
// the ledger does not care where the local copy lives.
func (s *Store) Import(data []byte) (model.Project, error) {
	var p model.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return model.Project{}, model.WrapError(model.KindValidation, "CERT-PRJ-004", "not a project export", err)
	}
	if p.Name == "" {
		return model.Project{}, model.NewError(model.KindValidation, "CERT-PRJ-004", "project export has no name")
	}

	projects, err := s.loadProjects()
	if err != nil {
		return model.Project{}, err
	}
	now := s.now().UTC()
	p.ID = s.newID()
	p.Name += " (Imported)"
	p.CreatedAt = now
	p.UpdatedAt = now
	projects = append(projects, p)
	if err := s.saveProjects(projects); err != nil {
		return model.Project{}, err
	}
	return p, nil
}

// Stats summarizes the store for dashboards.
type Stats struct {
	TotalProjects     int             `json:"totalProjects"`
	TotalCertificates int             `json:"totalCertificates"`
	Recent            []model.Project `json:"recent"`
}

// Stats counts projects and certificates and lists the five most
// recently updated projects.
func (s *Store) Stats() (Stats, error) {
	projects, err := s.List()
	if err != nil {
		return Stats{}, err
	}
	st := Stats{TotalProjects: len(projects)}
	for _, p := range projects {
		st.TotalCertificates += len(p.Certificates)
	}
	if len(projects) > 5 {
		projects = projects[:5]
	}
	st.Recent = projects
	return st, nil
}
