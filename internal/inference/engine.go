package inference

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/millops/backend/internal/domain"
	"github.com/millops/backend/internal/observability"
	"github.com/millops/backend/pkg/utils"
)

// ProductionFeatures is the column order of the production risk model
var ProductionFeatures = []string{"speed_rpm", "downtime_minutes", "temperature_c", "target_output", "machine_id"}

// SupplierFeatures is the column order of the supplier delay model
var SupplierFeatures = []string{"supplier_id", "material_type", "order_quantity", "price_per_kg", "transportation_status"}

// EfficiencyFeatures is the column order of the efficiency regressor
var EfficiencyFeatures = []string{"speed_rpm", "downtime_minutes", "temperature_c", "target_output"}

const (
	pathModel     = "model"
	pathHeuristic = "heuristic"
	pathEmpty     = "empty"
)

// Engine scores batches of recent rows. It holds read-only model handles and is safe
// for concurrent use. None of its scoring methods fail: any model-path error degrades
// to the heuristic result.
type Engine struct {
	models *Models
	logger *slog.Logger
}

// NewEngine wires the engine to models loaded once at startup
func NewEngine(models *Models, logger *slog.Logger) *Engine {
	if models == nil {
		models = &Models{Encoders: map[string]*LabelEncoder{}}
	}
	return &Engine{models: models, logger: logger}
}

// ScoreProductionRisk returns the downtime risk of a production batch
func (e *Engine) ScoreProductionRisk(ctx context.Context, rows []domain.ProductionRow) domain.RiskResult {
	ctx, span := observability.StartSpan(ctx, "inference.production_risk", attribute.Int("batch.size", len(rows)))
	defer span.End()

	if len(rows) == 0 {
		markPath(span, pathEmpty)
		return emptyRisk()
	}

	res, err := e.productionRiskModel(ctx, rows)
	if err != nil {
		e.logger.Warn("production risk model path failed, using heuristic", "error", err, "rows", len(rows))
		markPath(span, pathHeuristic)
		return HeuristicProductionRisk(rows)
	}
	markPath(span, pathModel)
	return res
}

func (e *Engine) productionRiskModel(ctx context.Context, rows []domain.ProductionRow) (domain.RiskResult, error) {
	clf := e.models.ProductionRisk
	enc := e.models.Encoder(EncoderMachineID)
	if clf == nil || enc == nil {
		return domain.RiskResult{}, fmt.Errorf("%w: production risk model or machine encoder", ErrArtifactUnavailable)
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.MachineID
	}
	machines, err := enc.Transform(ids)
	if err != nil {
		return domain.RiskResult{}, err
	}

	features := make([][]float64, len(rows))
	for i, r := range rows {
		features[i] = []float64{r.SpeedRPM, r.DowntimeMinutes, r.TemperatureC, r.TargetOutput, machines[i]}
	}

	proba, err := clf.Model.PredictProba(ctx, features)
	if err != nil {
		return domain.RiskResult{}, err
	}
	probs, err := positiveColumn(proba, len(rows))
	if err != nil {
		return domain.RiskResult{}, err
	}

	score := utils.RoundTo(utils.Mean(probs)*100, 1)

	var factors map[string]string
	if clf.Capability == WithImportances {
		factors = importanceFactors(ProductionFeatures, clf.Importances)
	} else {
		factors = HeuristicFactors(rows)
	}

	return domain.RiskResult{
		RiskScore:           score,
		RiskLevel:           ProductionRiskLevel(score),
		ContributingFactors: factors,
		ModelUsed:           clf.Label,
	}, nil
}

// ScoreSupplierDelay returns the delay risk of a supplier batch with a per-supplier breakdown
func (e *Engine) ScoreSupplierDelay(ctx context.Context, rows []domain.SupplierRow) domain.DelayResult {
	ctx, span := observability.StartSpan(ctx, "inference.supplier_delay", attribute.Int("batch.size", len(rows)))
	defer span.End()

	if len(rows) == 0 {
		markPath(span, pathEmpty)
		return emptyDelay()
	}

	res, err := e.supplierDelayModel(ctx, rows)
	if err != nil {
		e.logger.Warn("supplier delay model path failed, using heuristic", "error", err, "rows", len(rows))
		markPath(span, pathHeuristic)
		return HeuristicSupplierDelay(rows)
	}
	markPath(span, pathModel)
	return res
}

func (e *Engine) supplierDelayModel(ctx context.Context, rows []domain.SupplierRow) (domain.DelayResult, error) {
	clf := e.models.SupplierDelay
	supEnc := e.models.Encoder(EncoderSupplierID)
	matEnc := e.models.Encoder(EncoderMaterialType)
	statusEnc := e.models.Encoder(EncoderTransportStatus)
	if clf == nil || supEnc == nil || matEnc == nil || statusEnc == nil {
		return domain.DelayResult{}, fmt.Errorf("%w: supplier delay model or encoders", ErrArtifactUnavailable)
	}

	suppliers := make([]string, len(rows))
	materials := make([]string, len(rows))
	statuses := make([]string, len(rows))
	for i, r := range rows {
		suppliers[i] = r.SupplierID
		materials[i] = r.MaterialType
		statuses[i] = r.TransportationStatus
	}
	supCodes, err := supEnc.Transform(suppliers)
	if err != nil {
		return domain.DelayResult{}, err
	}
	matCodes, err := matEnc.Transform(materials)
	if err != nil {
		return domain.DelayResult{}, err
	}
	statusCodes, err := statusEnc.Transform(statuses)
	if err != nil {
		return domain.DelayResult{}, err
	}

	features := make([][]float64, len(rows))
	for i, r := range rows {
		features[i] = []float64{supCodes[i], matCodes[i], r.OrderQuantity, r.PricePerKg, statusCodes[i]}
	}

	proba, err := clf.Model.PredictProba(ctx, features)
	if err != nil {
		return domain.DelayResult{}, err
	}
	probs, err := positiveColumn(proba, len(rows))
	if err != nil {
		return domain.DelayResult{}, err
	}

	p := utils.RoundTo(utils.Mean(probs)*100, 1)

	return domain.DelayResult{
		DelayProbability:  p,
		RiskLevel:         SupplierRiskLevel(p),
		SupplierBreakdown: supplierBreakdown(suppliers, probs),
		ModelUsed:         clf.Label,
	}, nil
}

// PredictEfficiency forecasts efficiency for one set of machine conditions
func (e *Engine) PredictEfficiency(ctx context.Context, req domain.EfficiencyRequest) domain.EfficiencyResult {
	ctx, span := observability.StartSpan(ctx, "inference.efficiency")
	defer span.End()

	res, err := e.efficiencyModel(ctx, req)
	if err != nil {
		e.logger.Warn("efficiency model path failed, using fallback", "error", err)
		markPath(span, pathHeuristic)
		return domain.EfficiencyResult{PredictedEfficiency: FallbackEfficiency, ModelUsed: LabelEfficiencyFallback}
	}
	markPath(span, pathModel)
	return res
}

func (e *Engine) efficiencyModel(ctx context.Context, req domain.EfficiencyRequest) (domain.EfficiencyResult, error) {
	reg := e.models.Efficiency
	if reg == nil {
		return domain.EfficiencyResult{}, fmt.Errorf("%w: efficiency model", ErrArtifactUnavailable)
	}

	features := [][]float64{{req.SpeedRPM, req.DowntimeMinutes, req.TemperatureC, req.TargetOutput}}
	out, err := reg.Model.Predict(ctx, features)
	if err != nil {
		return domain.EfficiencyResult{}, err
	}
	if len(out) != 1 {
		return domain.EfficiencyResult{}, predictionErrorf("regressor returned %d values for 1 row", len(out))
	}
	if !utils.IsFinite(out[0]) {
		return domain.EfficiencyResult{}, predictionErrorf("regressor returned %v", out[0])
	}

	return domain.EfficiencyResult{
		PredictedEfficiency: utils.RoundTo(utils.Clamp(out[0], 40, 120), 1),
		ModelUsed:           reg.Label,
	}, nil
}

// ModelInfo reports what loaded at startup
func (e *Engine) ModelInfo() domain.ModelInfo {
	return domain.ModelInfo{
		ModelsLoaded:        e.models.AllLoaded(),
		ProductionRiskModel: classifierStatus(e.models.ProductionRisk),
		SupplierDelayModel:  classifierStatus(e.models.SupplierDelay),
		EfficiencyModel:     regressorStatus(e.models.Efficiency),
		EncodersLoaded:      e.models.EncoderNames(),
	}
}

// Model service states reported by ModelServiceHealth
const (
	ModelServiceNone        = "none"
	ModelServiceOK          = "ok"
	ModelServiceUnavailable = "unavailable"
)

// ModelServiceHealth pings the service behind every remote artifact. It reports "none"
// when every loaded predictor runs in process.
func (e *Engine) ModelServiceHealth(ctx context.Context) string {
	remotes := e.models.remotes()
	if len(remotes) == 0 {
		return ModelServiceNone
	}
	state := ModelServiceOK
	for name, r := range remotes {
		if err := r.Health(ctx); err != nil {
			e.logger.Warn("model service unhealthy", "artifact", name, "error", err)
			state = ModelServiceUnavailable
		}
	}
	return state
}

func classifierStatus(h *ClassifierHandle) domain.ModelStatus {
	if h == nil {
		return domain.ModelStatus{Loaded: false, Type: "None"}
	}
	return domain.ModelStatus{Loaded: true, Type: h.Label}
}

func regressorStatus(h *RegressorHandle) domain.ModelStatus {
	if h == nil {
		return domain.ModelStatus{Loaded: false, Type: "None"}
	}
	return domain.ModelStatus{Loaded: true, Type: h.Label}
}

// positiveColumn picks the risk class from each probability row: column 1 when the model
// has two or more classes, otherwise the only column.
func positiveColumn(proba [][]float64, n int) ([]float64, error) {
	if len(proba) != n {
		return nil, predictionErrorf("model returned %d rows for %d inputs", len(proba), n)
	}
	width := len(proba[0])
	if width == 0 {
		return nil, predictionErrorf("model returned no classes")
	}
	col := 0
	if width > 1 {
		col = 1
	}

	out := make([]float64, n)
	for i, row := range proba {
		if len(row) != width {
			return nil, predictionErrorf("row %d has %d classes, want %d", i, len(row), width)
		}
		p := row[col]
		if !utils.IsFinite(p) || p < 0 || p > 1 {
			return nil, predictionErrorf("row %d probability %v outside [0,1]", i, p)
		}
		out[i] = p
	}
	return out, nil
}

func importanceFactors(names []string, importances []float64) map[string]string {
	n := min(len(names), len(importances))
	out := make(map[string]string, n)
	for i := 0; i < n; i++ {
		out[names[i]] = fmt.Sprintf("%.1f%% impact", importances[i]*100)
	}
	return out
}

func supplierBreakdown(suppliers []string, probs []float64) map[string]string {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i, s := range suppliers {
		sums[s] += probs[i] * 100
		counts[s]++
	}
	out := make(map[string]string, len(sums))
	for s, sum := range sums {
		out[s] = fmt.Sprintf("%.1f%%", sum/float64(counts[s]))
	}
	return out
}

func markPath(span trace.Span, path string) {
	span.SetAttributes(attribute.String("inference.path", path))
}
