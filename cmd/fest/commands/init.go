package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/fest/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration and scaffold files"`
	Output string `short:"o" name:"output" help:"Directory to initialize (defaults to the working directory)"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	path := root.Config
	if i.Output != "" {
		path = filepath.Join(i.Output, config.DefaultFileNames[0])
	}
	if path == "" {
		path = config.DefaultFileNames[0]
	}
	return RunInit(path, i.Force)
}

// RunInit writes the starter project next to configPath.
func RunInit(configPath string, force bool) error {
	fmt.Fprintf(stdout, "Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		fmt.Fprintln(stdout, "Initialization failed")
		return err
	}
	fmt.Fprintln(stdout, "initialized successfully")
	return nil
}
