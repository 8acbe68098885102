// Package domain contains the shared data contracts for the IPU analysis
// pipeline. These types cross package boundaries (parser, deriver, analysis,
// transport) and must stay free of behavior beyond simple accessors.
package domain

import (
	"math"
	"time"
)

// Zone classification derived from the cadastral "clase" code.
const (
	ZonaUrbano   = "URBANO"
	ZonaRural    = "RURAL"
	ZonaSinClase = "SIN CLASE"
)

// EstratoSinDato is the category for properties without a socioeconomic
// stratum (missing cell or stratum 0).
const EstratoSinDato = "SIN ESTRATO"

// BandSinAvaluo is the single fallback valuation band used when no row in the
// dataset carries a 2024 assessed value.
const BandSinAvaluo = "SIN AVALUO"

// Tariff situation labels comparing the proposed per-mille rate against the
// current one.
const (
	TarifaBaja   = "Baja tarifa"
	TarifaMisma  = "Misma tarifa"
	TarifaSube   = "Sube tarifa"
	TarifaSinDato = "Sin dato"
)

// IPU situation labels comparing the proposed tax amount against the current
// one (sign of DIFERENCIA EN EL VALOR).
const (
	IPUBaja    = "Baja IPU"
	IPUIgual   = "IPU igual"
	IPUSube    = "Sube IPU"
	IPUSinDato = "Sin dato"
)

// PropertyRecord is one predio row of the MATRIZ sheet after parsing.
// Missing numeric cells are NaN; a missing clase or estrato is zero.
type PropertyRecord struct {
	Row             int     `json:"row" csv:"row"`
	Clase           int     `json:"clase" csv:"clase"`
	Estrato         int     `json:"estrato" csv:"ESTRATO"`
	Destinacion     string  `json:"destinacion" csv:"DESTINACION"`
	Avaluo2024      float64 `json:"avaluo_2024" csv:"avaluo2024"`
	AreaConst       float64 `json:"area_const" csv:"area_const"`
	Tarifa          float64 `json:"tarifa" csv:"tarifa"`
	TarifaPropuesta float64 `json:"tarifa_propuesta" csv:"TARIFA PROPUESTA"`
	VlrIPU2025      float64 `json:"vlr_ipu_2025" csv:"VLR_IPU_2025"`
	IPULey44        float64 `json:"ipu_ley_44" csv:"IPU LEY 44"`
	Diferencia      float64 `json:"diferencia" csv:"DIFERENCIA EN EL VALOR"`
}

// Record is a PropertyRecord plus the derived classification columns. Derived
// fields are computed once at load time and never mutated afterwards.
type Record struct {
	PropertyRecord

	Zona            string  `json:"zona" csv:"zona"`
	EstratoCat      string  `json:"estrato_cat" csv:"estrato_cat"`
	RangoAvaluo     string  `json:"rango_avaluo_2024" csv:"rango_avaluo_2024"`
	RangoArea       string  `json:"rango_area_const" csv:"rango_area_const"`
	CambioTarifa    float64 `json:"cambio_tarifa" csv:"cambio_tarifa"`
	SituacionTarifa string  `json:"situacion_tarifa" csv:"situacion_tarifa"`
	SituacionIPU    string  `json:"situacion_ipu" csv:"situacion_ipu"`
}

// Dataset is the derived table for one source file: every non-excluded row in
// original sheet order, plus the dataset-wide valuation band edges.
type Dataset struct {
	Source        string    `json:"source"`
	LoadedAt      time.Time `json:"loaded_at"`
	Records       []Record  `json:"records"`
	HasDiferencia bool      `json:"has_diferencia"`

	// AvaluoEdges and AvaluoLabels describe the quantile-derived valuation
	// bands shared by all records. Empty when the dataset has no valuations.
	AvaluoEdges  []float64 `json:"avaluo_edges"`
	AvaluoLabels []string  `json:"avaluo_labels"`
}

// FilterCriteria selects a working subset of the derived table. A nil
// categorical slice means "all observed values" (the widget default); an empty
// non-nil slice is an explicit empty selection and matches nothing. Nil range
// bounds are unbounded.
type FilterCriteria struct {
	Zonas         []string `json:"zonas"`
	Estratos      []string `json:"estratos"`
	Destinaciones []string `json:"destinaciones"`

	AvaluoMin *float64 `json:"avaluo_min,omitempty" validate:"omitempty,gte=0"`
	AvaluoMax *float64 `json:"avaluo_max,omitempty" validate:"omitempty,gte=0"`
	AreaMin   *float64 `json:"area_min,omitempty" validate:"omitempty,gte=0"`
	AreaMax   *float64 `json:"area_max,omitempty" validate:"omitempty,gte=0"`
}

// IsMissing reports whether a parsed numeric cell was absent or unparseable.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}
