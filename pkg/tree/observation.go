package tree

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/databeam/databeam/pkg/result"
	"github.com/databeam/databeam/pkg/sample"
)

// relativeTimeThreshold is the boundary used to tell a relative
// startTime ("seconds before now") from an absolute epoch time in the
// windowed Query* operations: any value below it is relative.
const relativeTimeThreshold = 30 * 365 * 86400

// BufferedSample is the persisted form of one ring-buffer entry, used by
// BufferBackend implementations.
type BufferedSample struct {
	Timestamp float64
	Type      sample.Type
	BoolVal   bool
	NumVal    float64
	StrVal    string
}

// BufferBackend persists an Observation's ring buffer so it survives a
// restart. Save is called at most once per configured backup period per
// Observation; Load is called by RestoreBuffer to seed the in-memory
// buffer.
type BufferBackend interface {
	Save(path string, samples []BufferedSample) error
	Load(path string) ([]BufferedSample, error)
}

// TransformRunner invokes a named custom transform plugin against a
// window of buffered samples, returning the computed result sample.
type TransformRunner interface {
	Run(pluginName string, window []BufferedSample) (*sample.Sample, error)
}

// TransformKind identifies a built-in statistical reduction over an
// Observation's buffer.
type TransformKind int

const (
	TransformNone TransformKind = iota
	TransformMean
	TransformStdDev
	TransformMax
	TransformMin
)

// obsPayload is the variant-specific state for Observation entries:
// filter configuration, the sample ring buffer, and buffer-backup
// bookkeeping.
type obsPayload struct {
	jsonExtract string // empty: no extraction; non-empty: token path, e.g. "x/y"

	hasMinPeriod bool
	minPeriod    float64
	lastAccepted float64
	everAccepted bool

	hasRange bool
	lowLimit float64
	hiLimit  float64

	hasChangeBy bool
	changeBy    float64
	lastValue   *sample.Sample

	bufferMax int
	buffer    []*sample.Sample // ring, oldest first, len <= bufferMax

	backupPath   string
	backupPeriod float64
	lastBackup   float64

	pluginName string

	hasTransform  bool
	transformKind TransformKind

	destination string
}

// GetObservation materializes (or returns the existing) Observation entry
// at path relative to base, consulting the tree's PathPolicy when
// creating and upgrading in place from an existing Placeholder exactly as
// GetInput/GetOutput do.
func (t *Tree) GetObservation(base *Entry, path string) (*Entry, error) {
	e, err := t.resolve(base, path, true, VariantObservation, false)
	if err != nil {
		return nil, err
	}
	if e.newFlag && e.variant == VariantObservation && e.res.obs == nil {
		if t.policy != nil && !t.policy.Allow(AbsolutePath(e), "", "create") {
			t.discardNewEntry(e)
			return nil, result.New(result.NotPermitted, "create denied by policy").WithPath(AbsolutePath(e))
		}
		e.variant = VariantObservation
		e.res.obs = &obsPayload{bufferMax: 1}
		return e, nil
	}
	switch e.variant {
	case VariantObservation:
		return e, nil
	case VariantPlaceholder:
		e.variant = VariantObservation
		e.res.obs = &obsPayload{bufferMax: 1}
		return e, nil
	default:
		return nil, result.New(result.Duplicate, "path already holds a different resource variant").WithPath(AbsolutePath(e))
	}
}

func obsOf(e *Entry) (*obsPayload, error) {
	if e.res == nil || e.res.obs == nil {
		return nil, result.New(result.NotFound, "not an Observation").WithPath(AbsolutePath(e))
	}
	return e.res.obs, nil
}

// SetJsonExtraction configures a JSON member-path to extract from every
// incoming JSON sample before the rest of the filter pipeline runs.
// Non-JSON samples are unaffected. spec='' disables extraction.
func SetJsonExtraction(e *Entry, spec string) error {
	o, err := obsOf(e)
	if err != nil {
		return err
	}
	o.jsonExtract = spec
	return nil
}

// SetMinPeriod configures a minimum spacing, in seconds, between accepted
// samples.
func SetMinPeriod(e *Entry, seconds float64) error {
	o, err := obsOf(e)
	if err != nil {
		return err
	}
	o.hasMinPeriod = seconds > 0
	o.minPeriod = seconds
	return nil
}

// ClearMinPeriod removes the minimum-period filter.
func ClearMinPeriod(e *Entry) error {
	o, err := obsOf(e)
	if err != nil {
		return err
	}
	o.hasMinPeriod = false
	return nil
}

// SetRange configures an inclusive [low, high] acceptance range for
// Numeric samples. Non-Numeric samples are unaffected.
func SetRange(e *Entry, low, high float64) error {
	o, err := obsOf(e)
	if err != nil {
		return err
	}
	o.hasRange = true
	o.lowLimit = low
	o.hiLimit = high
	return nil
}

// ClearRange removes the range filter.
func ClearRange(e *Entry) error {
	o, err := obsOf(e)
	if err != nil {
		return err
	}
	o.hasRange = false
	return nil
}

// SetChangeBy configures a minimum-delta filter: a Numeric sample is
// accepted only if it differs from the last accepted value by at least
// delta; a non-Numeric sample is accepted only if it differs from the
// last accepted value at all.
func SetChangeBy(e *Entry, delta float64) error {
	o, err := obsOf(e)
	if err != nil {
		return err
	}
	o.hasChangeBy = true
	o.changeBy = delta
	return nil
}

// ClearChangeBy removes the change-by filter.
func ClearChangeBy(e *Entry) error {
	o, err := obsOf(e)
	if err != nil {
		return err
	}
	o.hasChangeBy = false
	return nil
}

// SetBufferMax configures the ring buffer's capacity in samples. Shrinking
// below the current occupancy drops the oldest entries immediately.
func SetBufferMax(e *Entry, max int) error {
	o, err := obsOf(e)
	if err != nil {
		return err
	}
	if max < 1 {
		max = 1
	}
	o.bufferMax = max
	if len(o.buffer) > max {
		o.buffer = o.buffer[len(o.buffer)-max:]
	}
	return nil
}

// SetBufferBackup configures periodic persistence of e's ring buffer via
// the tree's BufferBackend, throttled to at most once per period seconds.
// A zero period disables backups for this Observation.
func SetBufferBackup(e *Entry, path string, period float64) error {
	o, err := obsOf(e)
	if err != nil {
		return err
	}
	o.backupPath = path
	o.backupPeriod = period
	return nil
}

// SetTransformPlugin names a custom transform plugin to be invoked by
// ObservationTransform in place of a built-in TransformKind.
func SetTransformPlugin(e *Entry, name string) error {
	o, err := obsOf(e)
	if err != nil {
		return err
	}
	o.pluginName = name
	return nil
}

// SetTransform configures a built-in reduction to compute over the buffer
// on every accepted sample: instead of publishing the raw accepted
// sample, the push pipeline publishes a synthetic sample carrying the
// transform's output. A SetTransformPlugin name, if also configured,
// takes precedence over kind at publish time, exactly as it does for
// ObservationTransform.
func SetTransform(e *Entry, kind TransformKind) error {
	o, err := obsOf(e)
	if err != nil {
		return err
	}
	o.hasTransform = kind != TransformNone
	o.transformKind = kind
	return nil
}

// ClearTransform disables transform-on-publish; the push pipeline resumes
// publishing the raw accepted sample.
func ClearTransform(e *Entry) error {
	o, err := obsOf(e)
	if err != nil {
		return err
	}
	o.hasTransform = false
	return nil
}

// Transform returns e's configured transform kind, or TransformNone if
// none is set.
func Transform(e *Entry) (TransformKind, error) {
	o, err := obsOf(e)
	if err != nil {
		return TransformNone, err
	}
	if !o.hasTransform {
		return TransformNone, nil
	}
	return o.transformKind, nil
}

// SetDestination records a destination string against e, used by external
// forwarding layers to decide where an Observation's published samples
// should be sent. The core tree does not interpret the string itself.
func SetDestination(e *Entry, dest string) error {
	o, err := obsOf(e)
	if err != nil {
		return err
	}
	o.destination = dest
	return nil
}

// Destination returns e's configured destination string, or "" if none is
// set.
func Destination(e *Entry) (string, error) {
	o, err := obsOf(e)
	if err != nil {
		return "", err
	}
	return o.destination, nil
}

// observationAccept runs s through e's filter pipeline (JSON extraction,
// min-period, range, change-by), appends an accepted sample to the ring
// buffer, triggers a throttled buffer backup, and then either publishes
// the accepted sample as-is or, if a transform is configured, a synthetic
// sample carrying the transform computed over the buffer. Returns
// (nil, false) if the pipeline rejects s.
func (t *Tree) observationAccept(e *Entry, s *sample.Sample) (*sample.Sample, bool) {
	o := e.res.obs

	if o.jsonExtract != "" && s.Type() == sample.JSON {
		extracted, err := sample.ExtractJson(s, o.jsonExtract)
		if err != nil {
			return nil, false
		}
		s = extracted
	}

	if o.hasMinPeriod && o.everAccepted && s.Timestamp()-o.lastAccepted < o.minPeriod {
		return nil, false
	}

	if o.hasRange && s.Type() == sample.Numeric {
		v := s.Num()
		if math.IsNaN(v) || v < o.lowLimit || v > o.hiLimit {
			return nil, false
		}
	}

	if o.hasChangeBy && o.lastValue != nil {
		if s.Type() == sample.Numeric && o.lastValue.Type() == sample.Numeric {
			if math.Abs(s.Num()-o.lastValue.Num()) < o.changeBy {
				return nil, false
			}
		} else if s.Equal(o.lastValue) {
			return nil, false
		}
	}

	o.everAccepted = true
	o.lastAccepted = s.Timestamp()
	o.lastValue = s
	o.appendBuffer(s)
	t.maybeBackup(e, o)

	if !o.hasTransform {
		return s, true
	}
	transformed, err := t.applyTransform(o, o.transformKind)
	if err != nil {
		return s, true
	}
	return transformed, true
}

// applyTransform computes o's configured reduction over its buffer,
// preferring a configured plugin over the built-in kind exactly as
// ObservationTransform does. On the publish path the buffer is never empty
// (the caller has just appended to it); ObservationTransform may pass an
// empty buffer, which computeTransform reports as Unavailable.
func (t *Tree) applyTransform(o *obsPayload, kind TransformKind) (*sample.Sample, error) {
	if o.pluginName != "" && t.plugins != nil {
		return t.plugins.Run(o.pluginName, snapshotBuffer(o.buffer))
	}
	return computeTransform(o.buffer, kind)
}

func (o *obsPayload) appendBuffer(s *sample.Sample) {
	o.buffer = append(o.buffer, s)
	if len(o.buffer) > o.bufferMax {
		o.buffer = o.buffer[len(o.buffer)-o.bufferMax:]
	}
}

func (t *Tree) maybeBackup(e *Entry, o *obsPayload) {
	if t.backend == nil || o.backupPath == "" || o.backupPeriod <= 0 {
		return
	}
	now := o.lastAccepted
	if o.lastBackup != 0 && now-o.lastBackup < o.backupPeriod {
		return
	}
	o.lastBackup = now
	_ = t.backend.Save(o.backupPath, snapshotBuffer(o.buffer))
}

func snapshotBuffer(buf []*sample.Sample) []BufferedSample {
	out := make([]BufferedSample, len(buf))
	for i, s := range buf {
		out[i] = BufferedSample{
			Timestamp: s.Timestamp(),
			Type:      s.Type(),
			BoolVal:   s.Bool(),
			NumVal:    s.Num(),
			StrVal:    s.Str(),
		}
	}
	return out
}

// RestoreBuffer seeds e's ring buffer from the tree's BufferBackend,
// intended to run once at bring-up before any pushes occur.
func (t *Tree) RestoreBuffer(e *Entry) error {
	o, err := obsOf(e)
	if err != nil {
		return err
	}
	if t.backend == nil || o.backupPath == "" {
		return nil
	}
	restored, err := t.backend.Load(o.backupPath)
	if err != nil {
		return err
	}
	o.buffer = o.buffer[:0]
	for _, b := range restored {
		o.appendBuffer(bufferedToSample(b))
	}
	return nil
}

func bufferedToSample(b BufferedSample) *sample.Sample {
	switch b.Type {
	case sample.Trigger:
		return sample.NewTrigger(b.Timestamp)
	case sample.Boolean:
		return sample.NewBoolean(b.Timestamp, b.BoolVal)
	case sample.Numeric:
		return sample.NewNumeric(b.Timestamp, b.NumVal)
	case sample.JSON:
		s, _ := sample.NewJSON(b.Timestamp, b.StrVal)
		return s
	default:
		s, _ := sample.NewString(b.Timestamp, b.StrVal)
		return s
	}
}

// BufferSamples returns a copy of e's current ring buffer, oldest first.
func BufferSamples(e *Entry) ([]*sample.Sample, error) {
	o, err := obsOf(e)
	if err != nil {
		return nil, err
	}
	out := make([]*sample.Sample, len(o.buffer))
	copy(out, o.buffer)
	return out, nil
}

// ObservationTransform computes a reduction over e's buffered Numeric
// samples. If a plugin is configured via SetTransformPlugin and runner is
// non-nil, the plugin takes precedence over the built-in kind.
func (t *Tree) ObservationTransform(e *Entry, kind TransformKind) (*sample.Sample, error) {
	o, err := obsOf(e)
	if err != nil {
		return nil, err
	}
	return t.applyTransform(o, kind)
}

// computeTransform reduces buf's Numeric, non-NaN samples with kind. An
// empty buffer is Unavailable; a non-empty buffer holding no numeric
// samples yields a NaN Numeric sample stamped with the last buffered
// sample's timestamp, per the non-numeric-buffer rule.
func computeTransform(buf []*sample.Sample, kind TransformKind) (*sample.Sample, error) {
	if len(buf) == 0 {
		return nil, result.New(result.Unavailable, "no samples to transform")
	}
	var vals []float64
	for _, s := range buf {
		if s.Type() != sample.Numeric || s.IsNaN() {
			continue
		}
		vals = append(vals, s.Num())
	}
	ts := buf[len(buf)-1].Timestamp()
	if len(vals) == 0 {
		return sample.NewNumeric(ts, math.NaN()), nil
	}
	switch kind {
	case TransformMean:
		return sample.NewNumeric(ts, mean(vals)), nil
	case TransformStdDev:
		return sample.NewNumeric(ts, stdDev(vals)), nil
	case TransformMax:
		return sample.NewNumeric(ts, maxOf(vals)), nil
	case TransformMin:
		return sample.NewNumeric(ts, minOf(vals)), nil
	default:
		return nil, result.New(result.BadParameter, "unknown transform kind")
	}
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func stdDev(vals []float64) float64 {
	m := mean(vals)
	var sumSq float64
	for _, v := range vals {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(vals)))
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// resolveStartTime applies the relative/absolute startTime rule: values
// below relativeTimeThreshold are "seconds before now", otherwise an
// absolute epoch time.
func resolveStartTime(startTime, now float64) float64 {
	if startTime < relativeTimeThreshold {
		return now - startTime
	}
	return startTime
}

func (t *Tree) queryWindow(e *Entry, startTime, now float64, kind TransformKind) (*sample.Sample, error) {
	o, err := obsOf(e)
	if err != nil {
		return nil, err
	}
	bound := resolveStartTime(startTime, now)
	var windowed []*sample.Sample
	for _, s := range o.buffer {
		if s.Timestamp() >= bound {
			windowed = append(windowed, s)
		}
	}
	return computeTransform(windowed, kind)
}

// QueryMin returns the minimum of e's buffered samples with a timestamp
// at or after the bound resolveStartTime(startTime, now) resolves to.
func (t *Tree) QueryMin(e *Entry, startTime, now float64) (*sample.Sample, error) {
	return t.queryWindow(e, startTime, now, TransformMin)
}

// QueryMax is QueryMin for the maximum.
func (t *Tree) QueryMax(e *Entry, startTime, now float64) (*sample.Sample, error) {
	return t.queryWindow(e, startTime, now, TransformMax)
}

// QueryMean is QueryMin for the arithmetic mean.
func (t *Tree) QueryMean(e *Entry, startTime, now float64) (*sample.Sample, error) {
	return t.queryWindow(e, startTime, now, TransformMean)
}

// QueryStdDev is QueryMin for the population standard deviation.
func (t *Tree) QueryStdDev(e *Entry, startTime, now float64) (*sample.Sample, error) {
	return t.queryWindow(e, startTime, now, TransformStdDev)
}

// ReadBufferJson writes e's buffered samples with timestamp > startAfter
// to out as a JSON array of {"t":<double>,"v":<value>} objects (Trigger
// entries omit "v" entirely), with no trailing newline, then invokes
// completion with the result. The write runs synchronously on the
// calling goroutine; completion mirrors the core's I/O-completion
// convention rather than signaling any real asynchrony.
func (t *Tree) ReadBufferJson(e *Entry, startAfter float64, out io.Writer, completion func(error)) {
	o, err := obsOf(e)
	if err != nil {
		completion(err)
		return
	}
	var filtered []*sample.Sample
	for _, s := range o.buffer {
		if s.Timestamp() > startAfter {
			filtered = append(filtered, s)
		}
	}
	completion(writeBufferJson(out, filtered))
}

func writeBufferJson(w io.Writer, buf []*sample.Sample) error {
	var b strings.Builder
	b.WriteByte('[')
	for i, s := range buf {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`{"t":`)
		b.WriteString(strconv.FormatFloat(s.Timestamp(), 'g', -1, 64))
		if s.Type() != sample.Trigger {
			v, err := valueToJSON(s)
			if err != nil {
				return err
			}
			b.WriteString(`,"v":`)
			b.WriteString(v)
		}
		b.WriteByte('}')
	}
	b.WriteByte(']')
	_, err := io.WriteString(w, b.String())
	return err
}

func valueToJSON(s *sample.Sample) (string, error) {
	switch s.Type() {
	case sample.Boolean:
		if s.Bool() {
			return "true", nil
		}
		return "false", nil
	case sample.Numeric:
		return strconv.FormatFloat(s.Num(), 'g', -1, 64), nil
	case sample.String:
		b, err := json.Marshal(s.Str())
		return string(b), err
	case sample.JSON:
		return s.Str(), nil
	default:
		return "", fmt.Errorf("unsupported sample type for buffer export: %v", s.Type())
	}
}
