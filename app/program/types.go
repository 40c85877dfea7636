package program

// Scope modes accepted by Build.
const (
	ModeAll   = "all"
	ModeRange = "range"
)

// NoSeriesName is the sentinel bucket for screenings whose item belongs to
// no curated series. It exists only in the joined output, never in the
// registry.
const NoSeriesName = "Uden for serie"

type Scope struct {
	Mode string `json:"mode"`
	From string `json:"from"`
	To   string `json:"to,omitempty"`
}

// AggregatedItem is one film/event with every in-scope screening folded in.
// Dates are "YYYY-MM-DD HH:MM", sorted and deduplicated.
type AggregatedItem struct {
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Image    string   `json:"image,omitempty"`
	Synopsis string   `json:"synopsis"`
	Dates    []string `json:"dates"`
}

// SeriesGroup holds a series' items sorted by earliest screening. Groups
// with no items are dropped before output.
type SeriesGroup struct {
	Name   string            `json:"name"`
	Intro  string            `json:"intro"`
	Banner string            `json:"banner,omitempty"`
	Items  []*AggregatedItem `json:"items"`
}

type Response struct {
	GeneratedAt string         `json:"generated_at"`
	Scope       Scope          `json:"scope"`
	Series      []*SeriesGroup `json:"series"`
}
