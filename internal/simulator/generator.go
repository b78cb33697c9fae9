// Package simulator streams synthetic machine and supplier rows into the store.
package simulator

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/millops/backend/internal/domain"
	"github.com/millops/backend/pkg/utils"
)

var (
	machines  = []string{"M1", "M2", "M3"}
	suppliers = []string{"S1", "S2", "S3"}
	materials = []string{"Cotton", "Yarn", "Dyes"}
	statuses  = []string{domain.TransportInTransit, domain.TransportDelayed, domain.TransportArrived}
)

// Generator produces plausible rows. Hot, fast machines break down more often and
// lose output to thermal throttling.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator creates a generator with a fixed seed, so runs are reproducible
func NewGenerator(seed uint64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// MachineRecord returns one production observation
func (g *Generator) MachineRecord() domain.ProductionRow {
	g.mu.Lock()
	defer g.mu.Unlock()

	machine := machines[g.rng.IntN(len(machines))]
	target := float64(g.intBetween(80, 100))
	speed := float64(g.intBetween(700, 1000))

	// Temperature follows speed
	baseTemp := 28 + (speed-700)/300*10
	temp := utils.RoundTo(baseTemp+g.uniform(-2, 5), 2)

	downtime := 0.0
	if g.rng.Float64() < downtimeProbability(temp, speed) {
		downtime = utils.RoundTo(g.uniform(0.5, 5), 2)
	}

	// Downtime is taken out of a 60 minute cycle
	uptime := math.Max(0, (60-downtime)/60)
	actual := math.Floor(target * uptime * thermalEfficiency(temp) * speedEfficiency(speed) * g.uniform(0.95, 1.02))

	return domain.ProductionRow{
		Timestamp:       g.now(),
		MachineID:       machine,
		TargetOutput:    target,
		ActualOutput:    math.Max(0, actual),
		SpeedRPM:        speed,
		DowntimeMinutes: downtime,
		TemperatureC:    temp,
	}
}

// SupplierRecord returns one delivery record
func (g *Generator) SupplierRecord() domain.SupplierRow {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	expected := today.AddDate(0, 0, g.intBetween(2, 10))
	actual := expected.AddDate(0, 0, g.intBetween(-1, 5))
	order := float64(g.intBetween(500, 2000))

	return domain.SupplierRow{
		Timestamp:            now,
		SupplierID:           suppliers[g.rng.IntN(len(suppliers))],
		MaterialType:         materials[g.rng.IntN(len(materials))],
		ExpectedDeliveryDate: expected,
		ActualDeliveryDate:   actual,
		OrderQuantity:        order,
		ReceivedQuantity:     order - float64(g.intBetween(0, 200)),
		PricePerKg:           utils.RoundTo(g.uniform(120, 200), 2),
		TransportationStatus: statuses[g.rng.IntN(len(statuses))],
	}
}

// downtimeProbability returns the chance of a stoppage in this cycle
func downtimeProbability(temp, speed float64) float64 {
	p := 0.05
	if temp > 38 {
		p += 0.2
	}
	if speed > 950 {
		p += 0.15
	}
	return p
}

// thermalEfficiency drops 5% per degree above 35°C
func thermalEfficiency(temp float64) float64 {
	if temp > 35 {
		return 1 - (temp-35)*0.05
	}
	return 1
}

func speedEfficiency(speed float64) float64 {
	if speed < 750 {
		return 0.9
	}
	return 1
}

// intBetween returns a uniform integer in [lo, hi]
func (g *Generator) intBetween(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}
