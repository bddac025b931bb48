package result

import "fmt"

// Exporter is an external collaborator that knows how to serialize a
// Container (or Batch) to a particular format. Exporters are registered by
// callers; this package carries no built-in format support.
type Exporter interface {
	Export(path string, c *Container) error
}

// BatchExporter is the Batch analog of Exporter.
type BatchExporter interface {
	ExportBatch(path string, b *Batch) error
}

var (
	exporters      = map[string]Exporter{}
	batchExporters = map[string]BatchExporter{}
)

// RegisterExporter installs an Exporter under format, e.g. "csv" or "hdf5".
func RegisterExporter(format string, e Exporter) { exporters[format] = e }

// RegisterBatchExporter installs a BatchExporter under format.
func RegisterBatchExporter(format string, e BatchExporter) { batchExporters[format] = e }

// Export dispatches to the Exporter registered for format.
func (c *Container) Export(format, path string) error {
	e, ok := exporters[format]
	if !ok {
		return fmt.Errorf("result: no exporter registered for format %q", format)
	}
	return e.Export(path, c)
}

// Export dispatches to the BatchExporter registered for format.
func (b *Batch) Export(format, path string) error {
	e, ok := batchExporters[format]
	if !ok {
		return fmt.Errorf("result: no batch exporter registered for format %q", format)
	}
	return e.ExportBatch(path, b)
}
