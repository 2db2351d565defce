package widget

import (
	"context"
	"time"

	"github.com/kjstillabower/krishi-dashboard/internal/models"
)

// IST is India Standard Time. A fixed zone avoids depending on tzdata.
var IST = time.FixedZone("IST", 5*60*60+30*60)

// Season returns the cropping season for t: kharif (Jun-Oct),
// rabi (Nov-Mar) or zaid (Apr-May).
func Season(t time.Time) string {
	switch m := t.In(IST).Month(); {
	case m >= time.June && m <= time.October:
		return "kharif"
	case m == time.April || m == time.May:
		return "zaid"
	default:
		return "rabi"
	}
}

// greetingKey returns the catalog key for the time of day.
func greetingKey(t time.Time) string {
	switch h := t.In(IST).Hour(); {
	case h < 12:
		return "greeting.morning"
	case h < 17:
		return "greeting.afternoon"
	default:
		return "greeting.evening"
	}
}

// HeroView is the hero banner content.
type HeroView struct {
	Greeting string `json:"greeting"`
	Season   string `json:"season"`
	Subtitle string `json:"subtitle"`
	Location string `json:"location"`
	Region   string `json:"region,omitempty"`
}

// HeroBanner renders the greeting and season locally; it never uses the
// network.
type HeroBanner struct {
	labels Labels
	now    func() time.Time
}

// NewHeroBanner returns the hero banner widget. now defaults to time.Now.
func NewHeroBanner(labels Labels, now func() time.Time) *HeroBanner {
	if now == nil {
		now = time.Now
	}
	return &HeroBanner{labels: labels, now: now}
}

func (h *HeroBanner) ID() models.WidgetID { return models.WidgetHeroBanner }
func (h *HeroBanner) NetworkBound() bool  { return false }

func (h *HeroBanner) Fetch(ctx context.Context, req Request) (any, error) {
	t := h.now()
	lang := req.Language()
	loc := req.Snapshot.Location
	return HeroView{
		Greeting: h.labels.Text(lang, greetingKey(t)),
		Season:   h.labels.Text(lang, "season."+Season(t)),
		Subtitle: h.labels.Textf(lang, "hero.subtitle", loc.Name),
		Location: loc.Name,
		Region:   loc.Region,
	}, nil
}

func (h *HeroBanner) Fallback(req Request) any {
	return HeroView{Greeting: h.labels.Text(req.Language(), "fallback."+string(models.WidgetHeroBanner))}
}

// CurrentSeason returns the season for the banner's clock.
func (h *HeroBanner) CurrentSeason() string {
	return Season(h.now())
}
