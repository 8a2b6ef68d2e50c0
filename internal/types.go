package internal

import "fmt"

type Category string

const (
	CategoryCIPTEA     Category = "ciptea"
	CategoryCIPF       Category = "cipf"
	CategoryPasseLivre Category = "passe_livre"
)

// Categories is the closed set of benefit types in output column order.
var Categories = []Category{CategoryCIPTEA, CategoryCIPF, CategoryPasseLivre}

func (c Category) Index() int {
	for i, known := range Categories {
		if known == c {
			return i
		}
	}
	return -1
}

func ParseCategory(value string) (Category, error) {
	c := Category(value)
	if c.Index() < 0 {
		return "", fmt.Errorf("unknown category %q (want one of ciptea, cipf, passe_livre)", value)
	}
	return c, nil
}

type Reason string

const (
	ReasonInstitutionNotFound Reason = "institution_not_found"
	ReasonConditionNotMapped  Reason = "condition_not_mapped"
	ReasonInvalidAge          Reason = "invalid_age"
)

// AgeBin is an inclusive age range; Max < 0 means unbounded.
type AgeBin struct {
	Label string
	Min   int
	Max   int
}

func (b AgeBin) Contains(age int) bool {
	return age >= b.Min && (b.Max < 0 || age <= b.Max)
}

var AgeBins = []AgeBin{
	{Label: "0-12", Min: 0, Max: 12},
	{Label: "13-17", Min: 13, Max: 17},
	{Label: "18-59", Min: 18, Max: 59},
	{Label: "60+", Min: 60, Max: -1},
}

func AgeBinIndex(label string) int {
	for i, b := range AgeBins {
		if b.Label == label {
			return i
		}
	}
	return -1
}

// Counts holds one non-negative counter per category, indexed like Categories.
type Counts [3]int

func (c *Counts) Add(cat Category) {
	if i := cat.Index(); i >= 0 {
		c[i]++
	}
}

func (c Counts) Get(cat Category) int {
	if i := cat.Index(); i >= 0 {
		return c[i]
	}
	return 0
}

func (c Counts) Total() int {
	return c[0] + c[1] + c[2]
}

// Demographics holds per-category counts for each entry of AgeBins.
type Demographics [4]Counts

func (d *Demographics) Add(bin AgeBin, cat Category) {
	if i := AgeBinIndex(bin.Label); i >= 0 {
		d[i].Add(cat)
	}
}

func (d Demographics) Get(label string, cat Category) int {
	if i := AgeBinIndex(label); i >= 0 {
		return d[i].Get(cat)
	}
	return 0
}

// RawRow is one input record keyed by the original header labels.
type RawRow struct {
	LineNo int
	Header []string
	Values []string
}

func (r RawRow) Get(column string) string {
	for i, h := range r.Header {
		if h == column {
			if i < len(r.Values) {
				return r.Values[i]
			}
			return ""
		}
	}
	return ""
}

type Table struct {
	Source string
	Header []string
	Rows   []RawRow
}

type InstitutionRecord struct {
	Name   string
	Fields map[string]string
	Counts Counts
}

type Pendency struct {
	LineNo      int
	Institution string
	Disability  string
	Age         string
	Reason      Reason
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
	// Ref locates the message at its source when the connector needs it back.
	Ref string
}

type RunRow struct {
	ID            int
	TraceID       string
	Source        string
	InputRef      string
	RowsProcessed int
	RowsApplied   int
	Pendencies    int
	CountsJSON    string
	TimingsJSON   string
	CreatedAt     string
}

type PendencyRow struct {
	RunID int
	Pendency
}
