package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/estimates-cli/internal/table"
)

type memBlob struct {
	name   string
	data   map[string][]byte
	getErr error
	putErr error
	puts   int
}

func newMem(name string) *memBlob {
	return &memBlob{name: name, data: map[string][]byte{}}
}

func (m *memBlob) Name() string { return m.name }

func (m *memBlob) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.data[key], nil
}

func (m *memBlob) Put(_ context.Context, key string, data []byte) error {
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.data[key] = data
	return nil
}

const (
	cloudCSV = "Report_Date,Q1'24\n2024-01-12,2.00\n"
	localCSV = "Report_Date,Q1'24\n2024-01-05,1.00\n"
)

func TestLoadTable_PrefersCloud(t *testing.T) {
	cloud, local := newMem("s3"), newMem("local")
	cloud.data["k"] = []byte(cloudCSV)
	local.data["k"] = []byte(localCSV)

	tbl, src, err := NewTiered(cloud, local).LoadTable(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, SourceCloud, src)
	assert.Equal(t, "2024-01-12", tbl.Rows[0].Date)
}

func TestLoadTable_CloudMissFallsBackToLocal(t *testing.T) {
	cloud, local := newMem("s3"), newMem("local")
	local.data["k"] = []byte(localCSV)

	tbl, src, err := NewTiered(cloud, local).LoadTable(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, src)
	assert.Equal(t, "2024-01-05", tbl.Rows[0].Date)
}

func TestLoadTable_CloudErrorFallsBackToLocal(t *testing.T) {
	cloud, local := newMem("s3"), newMem("local")
	cloud.getErr = errors.New("timeout")
	local.data["k"] = []byte(localCSV)

	_, src, err := NewTiered(cloud, local).LoadTable(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, src)
}

func TestLoadTable_CloudGarbageFallsBackToLocal(t *testing.T) {
	cloud, local := newMem("s3"), newMem("local")
	cloud.data["k"] = []byte("not,a,table\n")
	local.data["k"] = []byte(localCSV)

	_, src, err := NewTiered(cloud, local).LoadTable(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, src)
}

func TestLoadTable_EmptyWhenAbsent(t *testing.T) {
	tbl, src, err := NewTiered(nil, newMem("local")).LoadTable(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, SourceEmpty, src)
	assert.Equal(t, 0, tbl.Len())
}

func TestLoadTable_LocalReadError(t *testing.T) {
	local := newMem("local")
	local.getErr = errors.New("permission denied")

	_, _, err := NewTiered(nil, local).LoadTable(context.Background(), "k")
	require.Error(t, err)
}

func TestSaveTable_WritesThroughBothTiers(t *testing.T) {
	cloud, local := newMem("s3"), newMem("local")
	tbl, err := table.UnmarshalCSV([]byte(localCSV))
	require.NoError(t, err)

	res, err := NewTiered(cloud, local).SaveTable(context.Background(), "k", tbl)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, localCSV, string(cloud.data["k"]))
	assert.Equal(t, localCSV, string(local.data["k"]))
}

func TestSaveTable_CloudFailureStillWritesLocal(t *testing.T) {
	cloud, local := newMem("s3"), newMem("local")
	cloud.putErr = errors.New("403")

	res, err := NewTiered(cloud, local).SaveTable(context.Background(), "k", table.New())
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.True(t, res.Durable())
	assert.Equal(t, 1, local.puts)
}

func TestSaveTable_NoCloudConfigured(t *testing.T) {
	local := newMem("local")
	res, err := NewTiered(nil, local).SaveTable(context.Background(), "k", table.New())
	require.NoError(t, err)
	assert.False(t, res.Cloud.Attempted)
	assert.True(t, res.OK())
}

func TestPersist_ReportsUnwritable(t *testing.T) {
	cloud, local := newMem("s3"), newMem("local")
	cloud.putErr = errors.New("down")
	local.putErr = errors.New("disk full")

	rep, err := NewTiered(cloud, local).Persist(context.Background(), "est.csv", table.New(), "conf.csv", table.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "est.csv")
	assert.Contains(t, err.Error(), "conf.csv")
	assert.False(t, rep.Complete())
	assert.Equal(t, []string{"s3:est.csv", "local:est.csv", "s3:conf.csv", "local:conf.csv"}, rep.Failed())
}

func TestPersist_PartialCloudFailure(t *testing.T) {
	cloud, local := newMem("s3"), newMem("local")
	cloud.putErr = errors.New("down")

	rep, err := NewTiered(cloud, local).Persist(context.Background(), "est.csv", table.New(), "conf.csv", table.New())
	require.NoError(t, err)
	assert.False(t, rep.Complete())
	assert.Equal(t, []string{"s3:est.csv", "s3:conf.csv"}, rep.Failed())
}

func TestPersist_Complete(t *testing.T) {
	rep, err := NewTiered(newMem("s3"), newMem("local")).Persist(context.Background(), "est.csv", table.New(), "conf.csv", table.New())
	require.NoError(t, err)
	assert.True(t, rep.Complete())
	assert.Empty(t, rep.Failed())
}

func TestHoldersBothTiersAndCloudFailure(t *testing.T) {
	cloud, local := newMem("s3"), newMem("local")
	cloud.data["k"] = []byte(cloudCSV)
	local.data["k"] = []byte(localCSV)
	st := NewTiered(cloud, local)
	ctx := context.Background()

	assert.Equal(t, []Source{SourceCloud, SourceLocal}, st.Holders(ctx, "k"))

	cloud.getErr = errors.New("network down")
	assert.Equal(t, []Source{SourceLocal}, st.Holders(ctx, "k"))

	local.getErr = errors.New("disk gone")
	assert.False(t, st.Exists(ctx, "k"))
}

func TestExistsAndLastDate(t *testing.T) {
	cloud, local := newMem("s3"), newMem("local")
	cloud.data["k"] = []byte(cloudCSV)
	st := NewTiered(cloud, local)
	ctx := context.Background()

	assert.True(t, st.Exists(ctx, "k"))
	assert.False(t, st.Exists(ctx, "other"))

	local.data["local-only"] = []byte(localCSV)
	assert.True(t, st.Exists(ctx, "local-only"))

	assert.Equal(t, []Source{SourceCloud}, st.Holders(ctx, "k"))
	assert.Equal(t, []Source{SourceLocal}, st.Holders(ctx, "local-only"))
	assert.Empty(t, st.Holders(ctx, "other"))

	d, ok, err := st.LastDate(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC), d)

	_, ok, err = st.LastDate(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
