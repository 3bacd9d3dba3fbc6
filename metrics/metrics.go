package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// Gauge ...
	Gauge instrument = iota
	// Counter ...
	Counter
)

var (
	// ErrInstrumentNotSupported signals the specified instrument is not yet supported.
	ErrInstrumentNotSupported = errors.New("instrument type unsupported")
	// ErrInstrumentTypeMismatch signal the type of the instrument is not expected.
	ErrInstrumentTypeMismatch = errors.New("instrument is not of the expected type")
)

var (
	engineTime   *prometheus.CounterVec
	orderCounter *prometheus.CounterVec
	orderGauge   *prometheus.GaugeVec
)

// abstract prometheus types.
type instrument int

// combine all possible prometheus options + way to differentiate between regular or vector type.
type instrumentOpts struct {
	opts    prometheus.Opts
	vectors []string
}

type mi struct {
	gaugeV   *prometheus.GaugeVec
	gauge    prometheus.Gauge
	counterV *prometheus.CounterVec
	counter  prometheus.Counter
}

// InstrumentOption - vararg for instrument options setting.
type InstrumentOption func(o *instrumentOpts)

// Vectors - configuration used to create a vector of a given interface, slice of label names.
func Vectors(labels ...string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.vectors = labels
	}
}

// Help - set the help field on instrument.
func Help(help string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.opts.Help = help
	}
}

// Namespace - set namespace.
func Namespace(ns string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.opts.Namespace = ns
	}
}

// AddInstrument creates and registers a new instrument.
func AddInstrument(t instrument, name string, opts ...InstrumentOption) (*mi, error) {
	ret := mi{}
	opt := instrumentOpts{
		opts: prometheus.Opts{Name: name},
	}
	for _, o := range opts {
		o(&opt)
	}
	switch t {
	case Gauge:
		o := prometheus.GaugeOpts(opt.opts)
		if len(opt.vectors) == 0 {
			ret.gauge = prometheus.NewGauge(o)
			if err := prometheus.Register(ret.gauge); err != nil {
				return nil, err
			}
		} else {
			ret.gaugeV = prometheus.NewGaugeVec(o, opt.vectors)
			if err := prometheus.Register(ret.gaugeV); err != nil {
				return nil, err
			}
		}
	case Counter:
		o := prometheus.CounterOpts(opt.opts)
		if len(opt.vectors) == 0 {
			ret.counter = prometheus.NewCounter(o)
			if err := prometheus.Register(ret.counter); err != nil {
				return nil, err
			}
		} else {
			ret.counterV = prometheus.NewCounterVec(o, opt.vectors)
			if err := prometheus.Register(ret.counterV); err != nil {
				return nil, err
			}
		}
	default:
		return nil, ErrInstrumentNotSupported
	}
	return &ret, nil
}

func (m mi) Gauge() (prometheus.Gauge, error) {
	if m.gauge == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.gauge, nil
}

func (m mi) GaugeVec() (*prometheus.GaugeVec, error) {
	if m.gaugeV == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.gaugeV, nil
}

func (m mi) Counter() (prometheus.Counter, error) {
	if m.counter == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.counter, nil
}

func (m mi) CounterVec() (*prometheus.CounterVec, error) {
	if m.counterV == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.counterV, nil
}

// Setup registers the emulator instruments; call once at startup. Metrics
// are optional: when Setup has not been called every helper is a no-op.
func Setup() error {
	h, err := AddInstrument(
		Counter,
		"engine_seconds_total",
		Namespace("emulator"),
		Vectors("security", "engine", "fn"),
	)
	if err != nil {
		return err
	}
	est, err := h.CounterVec()
	if err != nil {
		return err
	}
	engineTime = est

	h, err = AddInstrument(
		Counter,
		"orders_total",
		Namespace("emulator"),
		Vectors("security", "valid"),
		Help("Number of orders processed"),
	)
	if err != nil {
		return err
	}
	ot, err := h.CounterVec()
	if err != nil {
		return err
	}
	orderCounter = ot

	h, err = AddInstrument(
		Gauge,
		"orders",
		Namespace("emulator"),
		Vectors("security"),
		Help("Number of orders currently resting on the book"),
	)
	if err != nil {
		return err
	}
	g, err := h.GaugeVec()
	if err != nil {
		return err
	}
	orderGauge = g

	return nil
}

// OrderCounterInc increments the order counter.
func OrderCounterInc(labelValues ...string) {
	if orderCounter == nil {
		return
	}
	orderCounter.WithLabelValues(labelValues...).Inc()
}

// OrderGaugeAdd increments the resting order gauge.
func OrderGaugeAdd(n int, labelValues ...string) {
	if orderGauge == nil {
		return
	}
	orderGauge.WithLabelValues(labelValues...).Add(float64(n))
}

// TimeCounter hold the time and labels to be used when we want to add the
// elapsed time to the engine time counter.
type TimeCounter struct {
	labelValues []string
	start       time.Time
}

// NewTimeCounter returns a new TimeCounter, with the start time set to now.
func NewTimeCounter(labelValues ...string) *TimeCounter {
	return &TimeCounter{
		labelValues: labelValues,
		start:       time.Now(),
	}
}

// EngineTimeCounterAdd adds the elapsed time since the counter was created
// to the engine time counter.
func (t *TimeCounter) EngineTimeCounterAdd() {
	if engineTime == nil {
		return
	}
	engineTime.WithLabelValues(t.labelValues...).Add(time.Since(t.start).Seconds())
}
