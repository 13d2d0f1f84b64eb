// Package templates 从 YAML 文件加载剧本结构模板
package templates

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"screenplay-wizard/internal/domain/entity"
	apperrors "screenplay-wizard/pkg/errors"
	"screenplay-wizard/pkg/logger"
)

// Catalog 只读模板目录
type Catalog struct {
	byID  map[string]*entity.Template
	order []string
}

// Load 读取 dir 下所有 .yaml/.yml 模板；目录不存在时返回空目录
func Load(ctx context.Context, dir string) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*entity.Template)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn(ctx, "template directory not found, catalog is empty", "dir", dir)
			return c, nil
		}
		return nil, fmt.Errorf("failed to read template dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		tpl, err := parseFile(path)
		if err != nil {
			return nil, err
		}
		if tpl.ID == "" {
			tpl.ID = strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		}
		if _, dup := c.byID[tpl.ID]; dup {
			return nil, fmt.Errorf("duplicate template id %q in %s", tpl.ID, path)
		}
		c.byID[tpl.ID] = tpl
		c.order = append(c.order, tpl.ID)
	}

	sort.Slice(c.order, func(i, j int) bool {
		return c.byID[c.order[i]].Name < c.byID[c.order[j]].Name
	})
	logger.Info(ctx, "template catalog loaded", "dir", dir, "count", len(c.order))
	return c, nil
}

func parseFile(path string) (*entity.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}
	var tpl entity.Template
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	if err := validate(&tpl); err != nil {
		return nil, fmt.Errorf("invalid template %s: %w", path, err)
	}
	return &tpl, nil
}

func validate(tpl *entity.Template) error {
	if len(tpl.Acts) == 0 {
		return errors.New("template has no acts")
	}
	seen := make(map[string]bool, len(tpl.Acts))
	for i, act := range tpl.Acts {
		if act.Key == "" {
			return fmt.Errorf("act %d has no key", i)
		}
		if seen[act.Key] {
			return fmt.Errorf("duplicate act key %q", act.Key)
		}
		if act.Weight < 0 {
			return fmt.Errorf("act %q has negative weight", act.Key)
		}
		seen[act.Key] = true
	}
	return nil
}

// Get 按 ID 返回模板副本
func (c *Catalog) Get(id string) (*entity.Template, error) {
	tpl, ok := c.byID[id]
	if !ok {
		return nil, apperrors.ErrTemplateMissing.WithDetail(id)
	}
	return tpl.Clone(), nil
}

// List 按名称返回所有模板副本
func (c *Catalog) List() []*entity.Template {
	list := make([]*entity.Template, 0, len(c.order))
	for _, id := range c.order {
		list = append(list, c.byID[id].Clone())
	}
	return list
}
