package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/estimates-cli/internal/table"
)

// Source names the tier a table was loaded from.
type Source string

const (
	SourceCloud Source = "cloud"
	SourceLocal Source = "local"
	SourceEmpty Source = "empty"
)

// Tiered reads cloud-first with local fallback and writes through to both.
// Cloud is nil when no remote tier is configured.
type Tiered struct {
	Cloud Blob
	Local Blob
}

// NewTiered combines a local tier with an optional cloud tier.
func NewTiered(cloud, local Blob) *Tiered {
	return &Tiered{Cloud: cloud, Local: local}
}

// CloudEnabled reports whether a remote tier is configured.
func (t *Tiered) CloudEnabled() bool {
	return t.Cloud != nil
}

// LoadTable returns the table stored under key. A cloud read or parse
// failure falls back to local; absence in both tiers yields an empty table.
func (t *Tiered) LoadTable(ctx context.Context, key string) (*table.Table, Source, error) {
	log := zap.L().With(zap.String("key", key))

	if t.Cloud != nil {
		data, err := t.Cloud.Get(ctx, key)
		switch {
		case err != nil:
			log.Warn("store: cloud read failed, falling back to local", zap.String("tier", t.Cloud.Name()), zap.Error(err))
		case data != nil:
			tbl, perr := table.UnmarshalCSV(data)
			if perr == nil {
				return tbl, SourceCloud, nil
			}
			log.Warn("store: cloud copy unparseable, falling back to local", zap.Error(perr))
		}
	}

	data, err := t.Local.Get(ctx, key)
	if err != nil {
		return nil, "", eris.Wrapf(err, "store: load %s", key)
	}
	if data == nil {
		log.Info("store: no stored table, starting empty")
		return table.New(), SourceEmpty, nil
	}
	tbl, err := table.UnmarshalCSV(data)
	if err != nil {
		return nil, "", eris.Wrapf(err, "store: parse local %s", key)
	}
	return tbl, SourceLocal, nil
}

// TierResult is the outcome of writing to one tier.
type TierResult struct {
	Tier      string
	Attempted bool
	Err       error
}

// OK reports whether the tier was skipped or written successfully.
func (r TierResult) OK() bool {
	return !r.Attempted || r.Err == nil
}

// WriteResult reports the write-through of one table.
type WriteResult struct {
	Key   string
	Cloud TierResult
	Local TierResult
}

// OK reports whether every attempted tier succeeded.
func (w WriteResult) OK() bool {
	return w.Cloud.OK() && w.Local.OK()
}

// Durable reports whether at least one tier holds the new table.
func (w WriteResult) Durable() bool {
	return (w.Cloud.Attempted && w.Cloud.Err == nil) || (w.Local.Attempted && w.Local.Err == nil)
}

// SaveTable writes tbl to the cloud tier when configured and always to the
// local tier. Tier failures are reported, not returned.
func (t *Tiered) SaveTable(ctx context.Context, key string, tbl *table.Table) (WriteResult, error) {
	res := WriteResult{Key: key}
	data, err := tbl.MarshalCSV()
	if err != nil {
		return res, eris.Wrapf(err, "store: encode %s", key)
	}

	if t.Cloud != nil {
		res.Cloud = TierResult{Tier: t.Cloud.Name(), Attempted: true, Err: t.Cloud.Put(ctx, key, data)}
		if res.Cloud.Err != nil {
			zap.L().Warn("store: cloud write failed", zap.String("key", key), zap.String("tier", t.Cloud.Name()), zap.Error(res.Cloud.Err))
		}
	}
	res.Local = TierResult{Tier: t.Local.Name(), Attempted: true, Err: t.Local.Put(ctx, key, data)}
	if res.Local.Err != nil {
		zap.L().Warn("store: local write failed", zap.String("key", key), zap.Error(res.Local.Err))
	}
	return res, nil
}

// PersistReport covers the lock-step write of both tables of a pass.
type PersistReport struct {
	Estimates  WriteResult
	Confidence WriteResult
}

// Complete reports whether both tables were written to every attempted tier.
func (p PersistReport) Complete() bool {
	return p.Estimates.OK() && p.Confidence.OK()
}

// Failed lists the attempted writes that failed, as "tier:key".
func (p PersistReport) Failed() []string {
	var out []string
	for _, w := range []WriteResult{p.Estimates, p.Confidence} {
		for _, r := range []TierResult{w.Cloud, w.Local} {
			if !r.OK() {
				out = append(out, r.Tier+":"+w.Key)
			}
		}
	}
	return out
}

// Err is non-nil when either table reached no tier at all.
func (p PersistReport) Err() error {
	var lost []string
	for _, w := range []WriteResult{p.Estimates, p.Confidence} {
		if !w.Durable() {
			lost = append(lost, w.Key)
		}
	}
	if len(lost) > 0 {
		return eris.Errorf("store: unwritable: %s", strings.Join(lost, ", "))
	}
	return nil
}

// Persist writes both tables.
func (t *Tiered) Persist(ctx context.Context, estimatesKey string, estimates *table.Table, confidenceKey string, confidence *table.Table) (PersistReport, error) {
	var (
		rep PersistReport
		err error
	)
	if rep.Estimates, err = t.SaveTable(ctx, estimatesKey, estimates); err != nil {
		return rep, err
	}
	if rep.Confidence, err = t.SaveTable(ctx, confidenceKey, confidence); err != nil {
		return rep, err
	}
	return rep, rep.Err()
}

// Holders returns the tiers that currently hold key, cloud first. A tier
// that fails to answer is logged and treated as not holding it.
func (t *Tiered) Holders(ctx context.Context, key string) []Source {
	var out []Source
	for _, tier := range []struct {
		src  Source
		blob Blob
	}{{SourceCloud, t.Cloud}, {SourceLocal, t.Local}} {
		if tier.blob == nil {
			continue
		}
		data, err := tier.blob.Get(ctx, key)
		if err != nil {
			zap.L().Warn("store: tier lookup failed", zap.String("key", key), zap.String("tier", tier.blob.Name()), zap.Error(err))
			continue
		}
		if data != nil {
			out = append(out, tier.src)
		}
	}
	return out
}

// Exists reports whether key is stored in either tier.
func (t *Tiered) Exists(ctx context.Context, key string) bool {
	return len(t.Holders(ctx, key)) > 0
}

// LastDate returns the greatest Report_Date of the table under key.
func (t *Tiered) LastDate(ctx context.Context, key string) (time.Time, bool, error) {
	tbl, _, err := t.LoadTable(ctx, key)
	if err != nil {
		return time.Time{}, false, err
	}
	d, ok := tbl.LastDate()
	return d, ok, nil
}

// Close releases connections held by the tiers.
func (t *Tiered) Close() error {
	for _, b := range []Blob{t.Cloud, t.Local} {
		if c, ok := b.(Closer); ok {
			if err := c.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}
