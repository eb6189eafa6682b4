package convert

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-normalizer-mcp/internal/imaging"
	"github.com/ironsheep/image-normalizer-mcp/internal/media"
	"github.com/ironsheep/image-normalizer-mcp/internal/sizing"
)

// Decoder turns an encoded blob into pixels.
type Decoder interface {
	Decode(ctx context.Context, b *media.Blob) (image.Image, error)
}

// Rasterizer draws src scaled onto dst.
type Rasterizer interface {
	Draw(dst draw.Image, src image.Image) error
}

// Encoder encodes pixels as a blob of the given MIME type.
type Encoder interface {
	Encode(ctx context.Context, img image.Image, mimeType string, quality float64) (*media.Blob, error)
}

// Fetcher opens a locator. The returned body must be closed by the caller.
type Fetcher interface {
	Open(ctx context.Context, locator string) (io.ReadCloser, string, error)
}

// BlobReader reads a blob in one of the reader modes.
type BlobReader interface {
	Read(ctx context.Context, b *media.Blob, mode imaging.ReadMode) (*imaging.ReadResult, error)
}

// Dispatcher classifies visual sources and routes each one through the
// pass-through or decode, render and encode stages.
//
// A Dispatcher holds only its collaborators and is safe for concurrent use.
// Every call allocates its own surfaces.
type Dispatcher struct {
	decoder    Decoder
	rasterizer Rasterizer
	encoder    Encoder
	fetcher    Fetcher
	reader     BlobReader
	maxPixels  int
	log        logrus.FieldLogger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger stage transitions are written to at Debug level.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithDecoder replaces the blob decoder.
func WithDecoder(dec Decoder) Option {
	return func(d *Dispatcher) { d.decoder = dec }
}

// WithRasterizer replaces the rasterizer.
func WithRasterizer(r Rasterizer) Option {
	return func(d *Dispatcher) { d.rasterizer = r }
}

// WithEncoder replaces the encoder.
func WithEncoder(e Encoder) Option {
	return func(d *Dispatcher) { d.encoder = e }
}

// WithFetcher replaces the locator fetcher.
func WithFetcher(f Fetcher) Option {
	return func(d *Dispatcher) { d.fetcher = f }
}

// WithReader replaces the blob reader.
func WithReader(r BlobReader) Option {
	return func(d *Dispatcher) { d.reader = r }
}

// WithMaxPixels bounds the area of output surfaces. Larger outputs fail
// with an *imaging.RenderError before any pixels are allocated.
func WithMaxPixels(n int) Option {
	return func(d *Dispatcher) { d.maxPixels = n }
}

// New creates a Dispatcher wired to the internal/imaging collaborators.
// Without WithLogger nothing is logged.
func New(opts ...Option) *Dispatcher {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	d := &Dispatcher{
		decoder:    imaging.NewDecoder(),
		rasterizer: imaging.NewRasterizer(imaging.ResampleLanczos),
		encoder:    imaging.DefaultEncoder(),
		fetcher:    imaging.NewLoader(nil),
		reader:     imaging.NewReader(),
		maxPixels:  imaging.DefaultMaxPixels,
		log:        quiet,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// job carries the per-call state through the stages.
type job struct {
	opts Options
	read imaging.ReadMode
	log  logrus.FieldLogger
}

func (j *job) enter(s Stage, src media.Source) {
	j.log.WithFields(logrus.Fields{"stage": s.String(), "kind": src.Kind().String()}).Debug("conversion stage")
}

// Convert converts input, any value media.Classify accepts, according to
// opts.
//
// With opts.Async unset the conversion runs inline: failures are returned
// directly and the Future is already settled. Sources that need a decode,
// a fetch or a frame capture fail with a
// *SynchronousConversionUnsupportedError.
//
// With opts.Async set Convert never returns an error; every failure,
// including an unsupported source, rejects the Future.
func (d *Dispatcher) Convert(ctx context.Context, input any, opts Options) (*Future, error) {
	return d.start(ctx, input, &job{opts: opts})
}

// Read reads input as a blob in the given mode. Non-blob sources are first
// encoded according to opts. The sync/async contract is the same as
// Convert's; the reader output is in Result.Read.
func (d *Dispatcher) Read(ctx context.Context, input any, mode imaging.ReadMode, opts Options) (*Future, error) {
	opts.Output = OutputBlob
	return d.start(ctx, input, &job{opts: opts, read: mode})
}

func (d *Dispatcher) start(ctx context.Context, input any, j *job) (*Future, error) {
	j.log = d.log.WithFields(logrus.Fields{"call": uuid.NewString(), "async": j.opts.Async})

	src, err := media.Classify(input)
	if err != nil {
		j.log.WithError(err).WithField("stage", StageRejected.String()).Debug("conversion stage")
		if !j.opts.Async {
			return nil, err
		}
		return settled(nil, err), nil
	}
	j.enter(StageClassified, src)

	if !j.opts.Async {
		if err := d.checkSync(src, j); err != nil {
			j.log.WithError(err).WithField("stage", StageRejected.String()).Debug("conversion stage")
			return nil, err
		}
		res, err := d.finish(ctx, src, j)
		if err != nil {
			return nil, err
		}
		return settled(res, nil), nil
	}

	f := newFuture()
	go func() {
		ctx, cancel := withTimeout(ctx, j.opts.Timeout)
		defer cancel()
		f.settle(d.finish(ctx, src, j))
	}()
	return f, nil
}

// recovered turns a panic raised below a conversion into a RenderError.
func recovered(err *error) {
	if rec := recover(); rec != nil {
		*err = &imaging.RenderError{Err: fmt.Errorf("conversion panicked: %v", rec)}
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// finish runs the stages and logs the terminal state.
func (d *Dispatcher) finish(ctx context.Context, src media.Source, j *job) (*Result, error) {
	res, err := d.run(ctx, src, j)
	if err != nil {
		j.log.WithError(err).WithField("stage", StageRejected.String()).Debug("conversion stage")
		return nil, err
	}
	j.enter(StageResolved, src)
	return res, nil
}

// run dispatches on Multiple. Panics below it reject the call.
func (d *Dispatcher) run(ctx context.Context, src media.Source, j *job) (res *Result, err error) {
	defer recovered(&err)
	if j.opts.Multiple {
		return d.runMultiple(ctx, src, j)
	}
	return d.runOne(ctx, src, j)
}

// runMultiple converts every element independently. Asynchronous calls run
// the elements concurrently and assemble the results positionally.
func (d *Dispatcher) runMultiple(ctx context.Context, src media.Source, j *job) (*Result, error) {
	items := []media.Source{src}
	if src.Kind() == media.KindList {
		items = src.List()
	}

	if !j.opts.Async {
		out := make([]*Result, len(items))
		for i, it := range items {
			res, err := d.runOne(ctx, it, j)
			if err != nil {
				return nil, fmt.Errorf("failed to convert element %d: %w", i, err)
			}
			out[i] = res
		}
		return &Result{Items: out}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	futures := make([]*Future, len(items))
	for i, it := range items {
		f := newFuture()
		futures[i] = f
		go func(i int, it media.Source) {
			var (
				res *Result
				err error
			)
			defer func() { f.settle(res, err) }()
			defer recovered(&err)
			res, err = d.runOne(ctx, it, j)
			if err != nil {
				err = fmt.Errorf("failed to convert element %d: %w", i, err)
			}
		}(i, it)
	}
	return All(futures...).Await(ctx)
}

// runOne converts a single source. A list contributes only its first element.
func (d *Dispatcher) runOne(ctx context.Context, src media.Source, j *job) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("conversion cancelled: %w", err)
	}

	switch src.Kind() {
	case media.KindList:
		if src.Len() == 0 {
			return nil, &media.UnsupportedSourceError{Value: src.List()}
		}
		return d.runOne(ctx, src.At(0), j)

	case media.KindBlob:
		return d.fromBlob(ctx, src, src.Blob(), j)

	case media.KindDataURL:
		return d.fromDataURL(ctx, src, j)

	case media.KindLocator:
		b, err := d.fetch(ctx, src.Locator())
		if err != nil {
			return nil, err
		}
		return d.fromBlob(ctx, src, b, j)

	case media.KindRaster:
		return d.fromImage(ctx, src, src.Image(), "", "", j)

	case media.KindFrame:
		return d.fromFrame(ctx, src, j)
	}
	return nil, &media.UnsupportedSourceError{Value: src}
}

// passThrough reports whether b can be returned without re-encoding.
func passThrough(b *media.Blob, opts Options) bool {
	return !opts.Force &&
		opts.Output != OutputCanvas &&
		!opts.Resize.Requested() &&
		(opts.Type == "" || opts.Type == b.Type)
}

func (d *Dispatcher) fromBlob(ctx context.Context, src media.Source, b *media.Blob, j *job) (*Result, error) {
	if b == nil {
		return nil, &media.UnsupportedSourceError{Value: b}
	}
	if passThrough(b, j.opts) {
		j.enter(StagePassThrough, src)
		res := &Result{Blob: b, PassThrough: true}
		if j.opts.Output == OutputDataURL {
			res.DataURL = media.FromBlob(b)
		}
		return d.maybeRead(ctx, res, j)
	}

	j.enter(StageDecoding, src)
	img, err := d.decoder.Decode(ctx, b)
	if err != nil {
		return nil, err
	}
	return d.fromImage(ctx, src, img, b.Type, b.Name, j)
}

func (d *Dispatcher) fromDataURL(ctx context.Context, src media.Source, j *job) (*Result, error) {
	u := src.DataURL()
	b, err := u.ToBlob()
	if err != nil {
		return nil, &imaging.DecodeError{Type: u.Type(), Err: err}
	}
	if passThrough(b, j.opts) {
		j.enter(StagePassThrough, src)
		res := &Result{Blob: b, PassThrough: true}
		if j.opts.Output == OutputDataURL {
			res.DataURL = u
		}
		return d.maybeRead(ctx, res, j)
	}
	return d.fromBlob(ctx, src, b, j)
}

func (d *Dispatcher) fromFrame(ctx context.Context, src media.Source, j *job) (*Result, error) {
	fs := src.Frame()
	w, h := fs.FrameSize()
	if _, err := sizing.Fit(w, h, j.opts.Resize); err != nil {
		return nil, err
	}

	j.enter(StageDecoding, src)
	img, err := fs.Frame(ctx)
	if err != nil {
		return nil, &imaging.DecodeError{Err: fmt.Errorf("failed to capture frame: %w", err)}
	}
	return d.fromImage(ctx, src, img, "", "", j)
}

func (d *Dispatcher) fetch(ctx context.Context, locator string) (*media.Blob, error) {
	rc, mimeType, err := d.fetcher.Open(ctx, locator)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &imaging.ReadError{Source: locator, Err: err}
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = media.Sniff(data)
	}
	b := media.NewBlob(data, mimeType)
	if u, err := url.Parse(locator); err == nil && path.Ext(u.Path) != "" {
		b.Name = path.Base(u.Path)
	}
	return b, nil
}

// fromImage renders img onto a fresh surface and encodes it. srcType and
// srcName describe the blob img was decoded from, if any.
func (d *Dispatcher) fromImage(ctx context.Context, src media.Source, img image.Image, srcType, srcName string, j *job) (*Result, error) {
	b := img.Bounds()
	dims, err := sizing.Fit(b.Dx(), b.Dy(), j.opts.Resize)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("conversion cancelled: %w", err)
	}

	j.enter(StageRendering, src)
	surface, err := imaging.NewBoundedSurface(dims.Width, dims.Height, d.maxPixels)
	if err != nil {
		return nil, err
	}
	if err := d.rasterizer.Draw(surface, img); err != nil {
		return nil, err
	}
	if j.opts.Output == OutputCanvas {
		return &Result{Image: surface}, nil
	}

	mimeType := j.opts.Type
	if mimeType == "" && typeEncodable(srcType) {
		mimeType = srcType
	}
	if mimeType == "" {
		mimeType = media.TypePNG
	}

	j.enter(StageEncoding, src)
	out, err := d.encoder.Encode(ctx, surface, mimeType, j.opts.quality())
	if err != nil {
		return nil, err
	}
	if name := firstNonEmpty(j.opts.Name, srcName); name != "" {
		out.Name = media.SuggestName(out, name)
	}

	res := &Result{Blob: out}
	if j.opts.Output == OutputDataURL {
		res.DataURL = media.FromBlob(out)
	}
	return d.maybeRead(ctx, res, j)
}

func (d *Dispatcher) maybeRead(ctx context.Context, res *Result, j *job) (*Result, error) {
	if j.read == "" {
		return res, nil
	}
	rr, err := d.reader.Read(ctx, res.Blob, j.read)
	if err != nil {
		return nil, err
	}
	res.Read = rr
	return res, nil
}

// checkSync rejects sources whose conversion cannot complete inline.
func (d *Dispatcher) checkSync(src media.Source, j *job) error {
	switch src.Kind() {
	case media.KindList:
		if !j.opts.Multiple {
			if src.Len() == 0 {
				return &media.UnsupportedSourceError{Value: src.List()}
			}
			return d.checkSync(src.At(0), j)
		}
		for _, it := range src.List() {
			if err := d.checkSync(it, j); err != nil {
				return err
			}
		}
		return nil

	case media.KindFrame:
		return &SynchronousConversionUnsupportedError{Kind: src.Kind(), Reason: "frame capture is asynchronous"}

	case media.KindLocator:
		return &SynchronousConversionUnsupportedError{Kind: src.Kind(), Reason: "fetching " + src.Locator() + " is asynchronous"}

	case media.KindBlob:
		if src.Blob() == nil {
			return &media.UnsupportedSourceError{Value: src.Blob()}
		}
		if !passThrough(src.Blob(), j.opts) {
			return &SynchronousConversionUnsupportedError{Kind: src.Kind(), Reason: "decoding a blob is asynchronous"}
		}

	case media.KindDataURL:
		b, err := src.DataURL().ToBlob()
		if err != nil {
			return &imaging.DecodeError{Type: src.DataURL().Type(), Err: err}
		}
		if !passThrough(b, j.opts) {
			return &SynchronousConversionUnsupportedError{Kind: src.Kind(), Reason: "decoding a data URL image is asynchronous"}
		}
	}
	return nil
}

var encodable = map[string]bool{
	media.TypePNG:  true,
	media.TypeJPEG: true,
	media.TypeGIF:  true,
	media.TypeWebP: true,
	media.TypeBMP:  true,
	media.TypeTIFF: true,
}

func typeEncodable(mimeType string) bool {
	return encodable[mimeType]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
