package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/locvowork/sheet_aggregator/internal/domain"
)

// manifest describes one merge job.
//
//	sources:
//	  - location: cutting.xlsx
//	    rename_hint: Proc1
//	    process_id: P1
//	    process_no: "1"
//	field_data: fields.json
type manifest struct {
	Sources   []domain.SourceEntry `yaml:"sources"`
	FieldData string               `yaml:"field_data"`
	Marker    string               `yaml:"marker"`
}

func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m manifest
	if err := yaml.UnmarshalStrict(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	if len(m.Sources) == 0 {
		return nil, fmt.Errorf("manifest %s lists no sources", path)
	}
	return &m, nil
}
