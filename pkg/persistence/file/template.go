package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/gustolabs/fluxo/pkg/models"
)

// TemplateRepository stores one template per JSON file under templates/.
type TemplateRepository struct {
	root string
}

func (r *TemplateRepository) dir() string {
	return path.Join(r.root, "templates")
}

func (r *TemplateRepository) GetAll(ctx context.Context) ([]*models.Template, error) {
	jsonFiles, err := fs.Glob(os.DirFS(r.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list template files: %w", err)
	}

	templates := make([]*models.Template, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		templateID := file[:len(file)-len(".json")]

		template, err := r.GetByID(ctx, templateID)
		if err != nil {
			return nil, err
		}

		if template != nil {
			templates = append(templates, template)
		}
	}

	return templates, nil
}

func (r *TemplateRepository) GetByID(_ context.Context, id string) (*models.Template, error) {
	var template models.Template

	found, err := readJSON(path.Join(r.dir(), id+".json"), &template)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, nil
	}

	return &template, nil
}

func (r *TemplateRepository) Save(_ context.Context, template *models.Template) error {
	return writeJSON(path.Join(r.dir(), template.ID+".json"), template)
}
