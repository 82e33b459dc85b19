package project

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"certledger.dev/certledger/model"
)

// Store is a file-backed project and session store.
//
// Layout: <dir>/projects.json and <dir>/session.json, both mode 0600.
// Writes go through a temp file and rename, so a crash leaves either the
// old or the new state, never a torn file.
type Store struct {
	dir string

	// now and newID are swappable for tests.
	now   func() time.Time
	newID func() string
}

// DefaultDirectory is the store location used when Open is given "".
func DefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".certledger"), nil
}

// Open creates the directory if needed and returns a Store rooted there.
func Open(dir string) (*Store, error) {
	if dir == "" {
		var err error
		dir, err = DefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Store{dir: dir, now: time.Now, newID: uuid.NewString}, nil
}

func (s *Store) projectsPath() string { return filepath.Join(s.dir, "projects.json") }
func (s *Store) sessionPath() string  { return filepath.Join(s.dir, "session.json") }

func (s *Store) loadProjects() ([]model.Project, error) {
	data, err := os.ReadFile(s.projectsPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var projects []model.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, model.WrapError(model.KindInternal, "CERT-PRJ-002", "project store is corrupt", err)
	}
	return projects, nil
}

func (s *Store) writeFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (s *Store) saveProjects(projects []model.Project) error {
	return s.writeFile(s.projectsPath(), projects)
}

func notFound(id string) error {
	return model.NewError(model.KindNotFound, "CERT-PRJ-001", "project "+id+" not found")
}

// List returns every project, most recently updated first.
func (s *Store) List() ([]model.Project, error) {
	projects, err := s.loadProjects()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].UpdatedAt.After(projects[j].UpdatedAt)
	})
	return projects, nil
}

// Get returns one project by id.
func (s *Store) Get(id string) (model.Project, error) {
	projects, err := s.loadProjects()
	if err != nil {
		return model.Project{}, err
	}
	for _, p := range projects {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Project{}, notFound(id)
}

// Create adds an empty project and returns it.
func (s *Store) Create(name, description string) (model.Project, error) {
	projects, err := s.loadProjects()
	if err != nil {
		return model.Project{}, err
	}
	now := s.now().UTC()
	p := model.Project{
		ID:          s.newID(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	projects = append(projects, p)
	if err := s.saveProjects(projects); err != nil {
		return model.Project{}, err
	}
	return p, nil
}

// Update replaces a stored project and refreshes its UpdatedAt.
func (s *Store) Update(p model.Project) (model.Project, error) {
	projects, err := s.loadProjects()
	if err != nil {
		return model.Project{}, err
	}
	for i := range projects {
		if projects[i].ID == p.ID {
			p.CreatedAt = projects[i].CreatedAt
			p.UpdatedAt = s.now().UTC()
			projects[i] = p
			if err := s.saveProjects(projects); err != nil {
				return model.Project{}, err
			}
			return p, nil
		}
	}
	return model.Project{}, notFound(p.ID)
}

// Delete removes a project and everything nested in it.
func (s *Store) Delete(id string) error {
	projects, err := s.loadProjects()
	if err != nil {
		return err
	}
	for i := range projects {
		if projects[i].ID == id {
			projects = append(projects[:i], projects[i+1:]...)
			return s.saveProjects(projects)
		}
	}
	return notFound(id)
}

func (s *Store) mutate(id string, fn func(*model.Project)) (model.Project, error) {
	projects, err := s.loadProjects()
	if err != nil {
		return model.Project{}, err
	}
	for i := range projects {
		if projects[i].ID == id {
			fn(&projects[i])
			projects[i].UpdatedAt = s.now().UTC()
			if err := s.saveProjects(projects); err != nil {
				return model.Project{}, err
			}
			return projects[i], nil
		}
	}
	return model.Project{}, notFound(id)
}

// SaveRoster stores a normalized roster on the project, replacing any
// previous one.
func (s *Store) SaveRoster(id string, recipients []model.RecipientRecord) (model.Project, error) {
	return s.mutate(id, func(p *model.Project) {
		p.Recipients = recipients
	})
}

// SaveTemplate stores the template configuration on the project.
func (s *Store) SaveTemplate(id string, tpl model.TemplateConfig) (model.Project, error) {
	return s.mutate(id, func(p *model.Project) {
		cp := tpl
		p.Template = &cp
	})
}

// AddCertificate appends one issued certificate, assigning its local id
// and creation time. Certificates are never rewritten in place.
func (s *Store) AddCertificate(id string, cert model.Certificate) (model.Certificate, error) {
	cert.LocalID = s.newID()
	cert.CreatedAt = s.now().UTC()
	_, err := s.mutate(id, func(p *model.Project) {
		p.Certificates = append(p.Certificates, cert)
	})
	if err != nil {
		return model.Certificate{}, err
	}
	return cert, nil
}

// Certificates lists a project's issued certificates in issue order.
func (s *Store) Certificates(id string) ([]model.Certificate, error) {
	p, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return p.Certificates, nil
}

// SaveSession records the active wallet session.
func (s *Store) SaveSession(sess model.Session) error {
	sess.SavedAt = s.now().UTC()
	return s.writeFile(s.sessionPath(), sess)
}

// CurrentSession returns the saved session, or ok=false when none exists.
func (s *Store) CurrentSession() (model.Session, bool, error) {
	data, err := os.ReadFile(s.sessionPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.Session{}, false, nil
		}
		return model.Session{}, false, err
	}
	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return model.Session{}, false, model.WrapError(model.KindInternal, "CERT-PRJ-003", "session store is corrupt", err)
	}
	return sess, true, nil
}

// ClearSession forgets the saved session. Clearing an absent session is
// not an error.
func (s *Store) ClearSession() error {
	err := os.Remove(s.sessionPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
