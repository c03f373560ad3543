package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/Bitlatte/spacetraveling/cmd"
	"github.com/Bitlatte/spacetraveling/internal/model"
)

var site model.SiteData

// loadSiteParams reads free-form template params. A missing file is fine.
func loadSiteParams(filename string) error {
	raw, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error reading params file %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(raw, &site.Params); err != nil {
		return fmt.Errorf("error unmarshalling params file %s: %w", filename, err)
	}
	return nil
}

func main() {
	if err := loadSiteParams("params.yaml"); err != nil {
		log.Fatalf("Error loading site params: %v", err)
	}
	cmd.Execute(&site)
}
