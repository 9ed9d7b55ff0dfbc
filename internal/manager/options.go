package manager

import (
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/nhle/taskboard/internal/model"
)

type options struct {
	log    zerolog.Logger
	locale language.Tag
	now    func() time.Time
}

func defaultOptions() options {
	return options{
		log:    zerolog.Nop(),
		locale: language.English,
		now:    model.Now,
	}
}

func (o options) collator() *collate.Collator {
	return collate.New(o.locale, collate.IgnoreCase)
}

// Option configures a TaskManager or UserManager.
type Option func(*options)

// WithLogger sets the logger for diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithLocale sets the language used for alphabetical ordering.
func WithLocale(tag language.Tag) Option {
	return func(o *options) { o.locale = tag }
}

// WithClock replaces the clock used to stamp new entities.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
