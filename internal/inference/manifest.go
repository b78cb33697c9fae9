package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the optional index of artifact file names
const ManifestFile = "manifest.yaml"

// Artifact names
const (
	ModelProductionRisk = "production_risk"
	ModelSupplierDelay  = "supplier_delay"
	ModelEfficiency     = "efficiency"

	EncoderMachineID       = "machine_id"
	EncoderSupplierID      = "supplier_id"
	EncoderMaterialType    = "material_type"
	EncoderTransportStatus = "transportation_status"
)

// Manifest maps artifact names to file names within a source
type Manifest struct {
	Models   map[string]string `yaml:"models"`
	Encoders map[string]string `yaml:"encoders"`
}

// DefaultManifest returns the standard artifact file names
func DefaultManifest() Manifest {
	return Manifest{
		Models: map[string]string{
			ModelProductionRisk: "production_risk_rf_model.json",
			ModelSupplierDelay:  "supplier_delay_rf_model.json",
			ModelEfficiency:     "efficiency_lr_model.json",
		},
		Encoders: map[string]string{
			EncoderMachineID:       "le_machine_id.json",
			EncoderSupplierID:      "le_supplier_id.json",
			EncoderMaterialType:    "le_material_type.json",
			EncoderTransportStatus: "le_transportation_status.json",
		},
	}
}

// LoadManifest reads manifest.yaml from src. A missing manifest yields the defaults;
// entries absent from the file keep their default file names.
func LoadManifest(ctx context.Context, src ArtifactSource) (Manifest, error) {
	m := DefaultManifest()

	r, err := src.Open(ctx, ManifestFile)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return m, err
	}
	defer r.Close()

	var file Manifest
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return m, fmt.Errorf("inference: failed to decode %s: %w", ManifestFile, err)
	}
	for k, v := range file.Models {
		m.Models[k] = v
	}
	for k, v := range file.Encoders {
		m.Encoders[k] = v
	}
	return m, nil
}
