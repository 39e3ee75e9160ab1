package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/pkg/utils"
)

// OutputFormat selects how results are printed.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRetrieveResponse prints retrieved context and its sources.
func WriteRetrieveResponse(w io.Writer, resp *models.RetrieveResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	if len(resp.Sources) == 0 {
		fmt.Fprintln(w, "No relevant context found.")
		return nil
	}
	fmt.Fprintf(w, "\nSources (%d):\n", len(resp.Sources))
	for i, src := range resp.Sources {
		fmt.Fprintf(w, "  %d. %s  [%.2f]  %s\n", i+1, src.FileName, src.Score, src.DocumentID)
	}
	fmt.Fprintln(w, "\n─────────────────────────────────────────────────────────")
	fmt.Fprint(w, resp.Context)
	return nil
}

// WriteDocuments prints a table of documents.
func WriteDocuments(w io.Writer, docs []models.Document, format OutputFormat) error {
	if format == OutputJSON {
		if docs == nil {
			docs = []models.Document{}
		}
		return writeJSON(w, docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tSTATUS\tCHUNKS\tUPLOADED")
	for _, d := range docs {
		status := string(d.Status)
		if d.Error != "" {
			status += ": " + utils.Truncate(d.Error, 40)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", d.ID, utils.Truncate(d.FileName, 40), status, d.ChunkCount, d.UploadedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

// WriteDocument prints one document record.
func WriteDocument(w io.Writer, d *models.Document, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, d)
	}
	fmt.Fprintf(w, "id:          %s\n", d.ID)
	fmt.Fprintf(w, "file_name:   %s\n", d.FileName)
	fmt.Fprintf(w, "status:      %s\n", d.Status)
	fmt.Fprintf(w, "chunks:      %d\n", d.ChunkCount)
	fmt.Fprintf(w, "size_bytes:  %d\n", d.FileSize)
	if d.Error != "" {
		fmt.Fprintf(w, "error:       %s\n", d.Error)
	}
	return nil
}

// WriteStatus prints the service status.
func WriteStatus(w io.Writer, st *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "documents:          %d   # uploaded documents\n", st.Documents)
	fmt.Fprintf(w, "embeddings:         %d   # chunk embeddings in the index\n", st.Embeddings)
	fmt.Fprintf(w, "vector_backend:     %s\n", st.VectorBackend)
	fmt.Fprintf(w, "storage_driver:     %s\n", st.StorageDriver)
	if st.StorageBytes != nil {
		fmt.Fprintf(w, "storage_bytes:      %d\n", *st.StorageBytes)
	}
	c := st.Config
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# configuration")
	fmt.Fprintf(w, "embedding:          %s/%s\n", c.EmbeddingProvider, c.EmbeddingModel)
	fmt.Fprintf(w, "chunk_size:         %d\n", c.ChunkSize)
	fmt.Fprintf(w, "chunk_overlap:      %d\n", c.ChunkOverlap)
	fmt.Fprintf(w, "max_chunks:         %d\n", c.MaxChunks)
	fmt.Fprintf(w, "top_k:              %d\n", c.TopK)
	fmt.Fprintf(w, "threshold:          %.2f\n", c.SimilarityThreshold)
	fmt.Fprintf(w, "supported_types:    %v\n", c.SupportedTypes)
	return nil
}
