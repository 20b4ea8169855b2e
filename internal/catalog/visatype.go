package catalog

// VisaType is one of the fixed set of monitored nonimmigrant visa classes.
type VisaType string

const (
	VisaF VisaType = "F"
	VisaJ VisaType = "J"
	VisaB VisaType = "B"
	VisaH VisaType = "H"
	VisaO VisaType = "O"
	VisaL VisaType = "L"
)

var visaDetails = map[VisaType]string{
	VisaF: "F1/F2",
	VisaJ: "J1/J2",
	VisaB: "B1/B2",
	VisaH: "H1B",
	VisaO: "O1/O2/O3",
	VisaL: "L1/L2",
}

// VisaTypes returns all monitored visa types in stable order.
func VisaTypes() []VisaType {
	return []VisaType{VisaF, VisaJ, VisaB, VisaH, VisaO, VisaL}
}

// ParseVisaType maps a one-letter code to its VisaType.
func ParseVisaType(s string) (VisaType, bool) {
	v := VisaType(s)
	_, ok := visaDetails[v]
	return v, ok
}

// Detail returns the human-readable class detail, e.g. "F1/F2".
func (v VisaType) Detail() string { return visaDetails[v] }

func (v VisaType) Valid() bool {
	_, ok := visaDetails[v]
	return ok
}
