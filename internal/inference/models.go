package inference

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// Models holds every artifact that loaded at startup. A nil handle or a missing encoder
// means that artifact is unavailable for the lifetime of the process.
type Models struct {
	ProductionRisk *ClassifierHandle
	SupplierDelay  *ClassifierHandle
	Efficiency     *RegressorHandle
	Encoders       map[string]*LabelEncoder
}

// Encoder returns the named encoder or nil
func (m *Models) Encoder(name string) *LabelEncoder {
	if m == nil {
		return nil
	}
	return m.Encoders[name]
}

// AllLoaded reports whether all three predictors and four encoders are present
func (m *Models) AllLoaded() bool {
	if m == nil || m.ProductionRisk == nil || m.SupplierDelay == nil || m.Efficiency == nil {
		return false
	}
	for _, name := range []string{EncoderMachineID, EncoderSupplierID, EncoderMaterialType, EncoderTransportStatus} {
		if m.Encoders[name] == nil {
			return false
		}
	}
	return true
}

// EncoderNames returns the sorted names of loaded encoders
func (m *Models) EncoderNames() []string {
	names := []string{}
	if m == nil {
		return names
	}
	for name, enc := range m.Encoders {
		if enc != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// remotes returns the model service clients behind remote-kind artifacts
func (m *Models) remotes() map[string]*RemoteModel {
	out := make(map[string]*RemoteModel)
	if m == nil {
		return out
	}
	if m.ProductionRisk != nil {
		if r, ok := m.ProductionRisk.Model.(*RemoteModel); ok {
			out[ModelProductionRisk] = r
		}
	}
	if m.SupplierDelay != nil {
		if r, ok := m.SupplierDelay.Model.(*RemoteModel); ok {
			out[ModelSupplierDelay] = r
		}
	}
	if m.Efficiency != nil {
		if r, ok := m.Efficiency.Model.(*RemoteModel); ok {
			out[ModelEfficiency] = r
		}
	}
	return out
}

// inputWidth is the number of columns each predictor is scored with
var inputWidth = map[string]int{
	ModelProductionRisk: len(ProductionFeatures),
	ModelSupplierDelay:  len(SupplierFeatures),
	ModelEfficiency:     len(EfficiencyFeatures),
}

// LoadModels loads every artifact named by the source's manifest. It never fails: an
// artifact that cannot be read or decoded is logged and left unavailable.
func LoadModels(ctx context.Context, src ArtifactSource, logger *slog.Logger) *Models {
	logger = logger.With("source", src.String())

	manifest, err := LoadManifest(ctx, src)
	if err != nil {
		logger.Warn("manifest unreadable, using default artifact names", "error", err)
	}

	m := &Models{Encoders: make(map[string]*LabelEncoder)}

	if a := loadArtifact(ctx, src, ModelProductionRisk, manifest.Models[ModelProductionRisk], logger); a != nil {
		m.ProductionRisk = buildClassifier(a, ModelProductionRisk, logger)
	}
	if a := loadArtifact(ctx, src, ModelSupplierDelay, manifest.Models[ModelSupplierDelay], logger); a != nil {
		m.SupplierDelay = buildClassifier(a, ModelSupplierDelay, logger)
	}
	if a := loadArtifact(ctx, src, ModelEfficiency, manifest.Models[ModelEfficiency], logger); a != nil {
		h, err := a.Regressor()
		if err == nil {
			err = checkWidth(a, ModelEfficiency)
		}
		if err != nil {
			logger.Warn("artifact invalid", "artifact", ModelEfficiency, "error", err)
		} else {
			m.Efficiency = h
		}
	}

	for name, file := range manifest.Encoders {
		a := loadArtifact(ctx, src, name, file, logger)
		if a == nil {
			continue
		}
		enc, err := a.Encoder(name)
		if err != nil {
			logger.Warn("artifact invalid", "artifact", name, "error", err)
			continue
		}
		logger.Debug("encoder loaded", "artifact", enc.Name(), "classes", len(enc.Classes()))
		m.Encoders[name] = enc
	}

	if m.AllLoaded() {
		logger.Info("all ML models loaded")
	} else {
		logger.Warn("some ML artifacts unavailable, heuristics will be used where needed",
			"encoders", m.EncoderNames())
	}
	return m
}

func loadArtifact(ctx context.Context, src ArtifactSource, name, file string, logger *slog.Logger) *Artifact {
	if file == "" {
		logger.Warn("artifact not listed", "artifact", name, "error", ErrArtifactUnavailable)
		return nil
	}
	r, err := src.Open(ctx, file)
	if err != nil {
		logger.Warn("artifact not found", "artifact", name, "error", fmt.Errorf("%w: %v", ErrArtifactUnavailable, err))
		return nil
	}
	defer r.Close()

	a, err := DecodeArtifact(r)
	if err != nil {
		logger.Warn("artifact unreadable", "artifact", name, "error", fmt.Errorf("%w: %v", ErrArtifactUnavailable, err))
		return nil
	}
	return a
}

func buildClassifier(a *Artifact, name string, logger *slog.Logger) *ClassifierHandle {
	h, err := a.Classifier()
	if err == nil {
		err = checkWidth(a, name)
	}
	if err != nil {
		logger.Warn("artifact invalid", "artifact", name, "error", err)
		return nil
	}

	attrs := []any{"artifact", name, "type", h.Label, "capability", h.Capability.String()}
	if f, ok := h.Model.(*RandomForest); ok {
		attrs = append(attrs, "trees", len(f.trees), "classes", f.NumClasses())
	}
	logger.Debug("classifier loaded", attrs...)
	return h
}

// checkWidth rejects an artifact fit on a different number of columns than the engine
// builds for it. Remote artifacts that declare no width are accepted as is.
func checkWidth(a *Artifact, name string) error {
	got, want := a.FeatureCount(), inputWidth[name]
	if got == 0 && a.Kind == KindRemote {
		return nil
	}
	if got != want {
		return fmt.Errorf("inference: %s artifact has %d features, want %d", name, got, want)
	}
	return nil
}
