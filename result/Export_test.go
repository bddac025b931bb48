package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExporter struct{ lastPath string }

func (f *fakeExporter) Export(path string, c *Container) error {
	f.lastPath = path
	return nil
}

type fakeBatchExporter struct{ lastPath string }

func (f *fakeBatchExporter) ExportBatch(path string, b *Batch) error {
	f.lastPath = path
	return nil
}

func TestContainerExportDispatchesToRegisteredFormat(t *testing.T) {
	fe := &fakeExporter{}
	RegisterExporter("test-format", fe)

	c := NewContainer([]float64{0}, nil, nil, nil, nil)
	err := c.Export("test-format", "/tmp/out")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", fe.lastPath)
}

func TestContainerExportRejectsUnknownFormat(t *testing.T) {
	c := NewContainer([]float64{0}, nil, nil, nil, nil)
	err := c.Export("no-such-format", "/tmp/out")
	require.Error(t, err)
}

func TestBatchExportDispatchesToRegisteredFormat(t *testing.T) {
	fbe := &fakeBatchExporter{}
	RegisterBatchExporter("test-batch-format", fbe)

	b := NewBatch()
	err := b.Export("test-batch-format", "/tmp/batch-out")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/batch-out", fbe.lastPath)
}
