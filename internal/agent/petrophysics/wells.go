package petrophysics

// Logs are representative log readings over a well's reservoir interval
type Logs struct {
	Well      string  `json:"wellName"`
	Field     string  `json:"field"`
	Formation string  `json:"formation"`
	TopFt     float64 `json:"topDepthFt"`
	BaseFt    float64 `json:"baseDepthFt"`
	RHOB      float64 `json:"rhob"`
	GR        float64 `json:"gr"`
	GRClean   float64 `json:"grClean"`
	GRShale   float64 `json:"grShale"`
	RT        float64 `json:"rt"`
	Rw        float64 `json:"rw"`
}

var referenceWells = []Logs{
	{Well: "WELL-001", Field: "North Field", Formation: "Frio", TopFt: 7450, BaseFt: 7620, RHOB: 2.35, GR: 48, GRClean: 25, GRShale: 140, RT: 22, Rw: 0.05},
	{Well: "WELL-002", Field: "North Field", Formation: "Frio", TopFt: 7510, BaseFt: 7660, RHOB: 2.41, GR: 62, GRClean: 25, GRShale: 140, RT: 14, Rw: 0.05},
	{Well: "WELL-003", Field: "North Field", Formation: "Vicksburg", TopFt: 8120, BaseFt: 8290, RHOB: 2.48, GR: 85, GRClean: 28, GRShale: 145, RT: 8, Rw: 0.06},
	{Well: "WELL-004", Field: "South Field", Formation: "Wilcox", TopFt: 9300, BaseFt: 9480, RHOB: 2.29, GR: 40, GRClean: 22, GRShale: 135, RT: 35, Rw: 0.04},
	{Well: "WELL-005", Field: "South Field", Formation: "Wilcox", TopFt: 9410, BaseFt: 9555, RHOB: 2.52, GR: 104, GRClean: 22, GRShale: 135, RT: 4.5, Rw: 0.04},
}
