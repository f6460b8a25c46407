package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "table", input: "table", want: FormatTable},
		{name: "empty means table", input: "", want: FormatTable},
		{name: "json", input: "json", want: FormatJSON},
		{name: "uppercase", input: "JSON", want: FormatJSON},
		{name: "yaml", input: "yaml", want: FormatYAML},
		{name: "yml alias", input: "yml", want: FormatYAML},
		{name: "padded", input: "  yaml ", want: FormatYAML},
		{name: "unsupported", input: "csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "table", FormatTable.String())
	assert.Equal(t, "json", FormatJSON.String())
	assert.Equal(t, "yaml", FormatYAML.String())
}

func TestPrinterPrintRoutesByFormat(t *testing.T) {
	status := struct {
		Running bool `json:"running" yaml:"running"`
	}{Running: true}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatJSON, false).Print(status))
		assert.Contains(t, buf.String(), `"running": true`)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatYAML, false).Print(status))
		assert.Contains(t, buf.String(), "running: true")
	})

	t.Run("table renderer", func(t *testing.T) {
		table := NewTableData("DC")
		table.AddRow("4")

		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(table))
		assert.Contains(t, buf.String(), "DC")
		assert.Contains(t, buf.String(), "4")
	})

	t.Run("table without renderer falls back to json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(status))
		assert.Contains(t, buf.String(), `"running": true`)
	})
}

func TestPrinterStatusLines(t *testing.T) {
	t.Run("with color", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewPrinter(&buf, FormatTable, true)

		p.Success("ok")
		p.Warning("careful")
		p.Error("broken")

		out := buf.String()
		assert.Contains(t, out, "\033[32mok\033[0m")
		assert.Contains(t, out, "\033[33mcareful\033[0m")
		assert.Contains(t, out, "\033[31mbroken\033[0m")
	})

	t.Run("without color", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewPrinter(&buf, FormatTable, false)

		p.Success("ok")

		assert.Equal(t, "ok\n", buf.String())
	})
}

func TestPrinterPrintfPrintln(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatTable, false)

	p.Printf("port %d\n", 8080)
	p.Println("done")

	assert.Contains(t, buf.String(), "port 8080")
	assert.Contains(t, buf.String(), "done")
}

func TestDefaultPrinter(t *testing.T) {
	assert.NotNil(t, DefaultPrinter())
}
