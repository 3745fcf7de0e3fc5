package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scaffold files written by Init next to the configuration file.
var scaffoldPages = map[string]string{
	"index.html": `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Home</title></head>
<body>
  <h1>It works</h1>
  <p>Pages live in {{.Config.PagesDir}}, static files in {{.Config.StaticDir}}.</p>
</body>
</html>
`,
	"about.md": "# About\n\nThis page is written in Markdown and wrapped by `_layout.html`.\n",
	"_layout.html": `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>{{.Page.Name}}</title></head>
<body>
{{.Body}}
</body>
</html>
`,
}

// Init writes a starter configuration file plus pages and static directories.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	cfg := Default()
	cfg.StaticDir = "public"
	cfg.PagesDir = "pages"

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	root := filepath.Dir(configPath)
	pagesDir := filepath.Join(root, cfg.PagesDir)
	if err := os.MkdirAll(pagesDir, 0o755); err != nil {
		return fmt.Errorf("create pages dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(root, cfg.StaticDir), 0o755); err != nil {
		return fmt.Errorf("create static dir: %w", err)
	}
	for name, content := range scaffoldPages {
		p := filepath.Join(pagesDir, name)
		if _, err := os.Stat(p); err == nil && !force {
			continue
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write page %s: %w", name, err)
		}
	}
	return nil
}
