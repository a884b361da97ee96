package output

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stamp struct {
	time.Time
}

type ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type row struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone" table:"wide"`
	Secret    string    `table:"-"`
	At        stamp     `json:"at"`
	Service   *ref      `json:"service"`
	Available bool      `json:"available"`
	Created   time.Time `json:"created" table:"wide"`
	internal  string
}

func render(t *testing.T, f *TableFormatter, data any) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, data))
	return buf.String()
}

func TestTableFormatter_Table(t *testing.T) {
	table := &Table{Headers: []string{"NAME", "VALUE"}}
	table.AddRow("key1", "value1")

	out := render(t, &TableFormatter{}, table)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "key1")

	out = render(t, &TableFormatter{NoHeaders: true}, *table)
	assert.NotContains(t, out, "NAME")
	assert.Contains(t, out, "value1")
}

func TestTableFormatter_Nil(t *testing.T) {
	assert.Empty(t, render(t, &TableFormatter{}, nil))
}

func TestTableFormatter_Slice(t *testing.T) {
	at := stamp{time.Date(2024, 6, 10, 9, 0, 0, 0, time.Local)}
	rows := []row{
		{ID: "1", FullName: "Ada", Phone: "555", Secret: "s3cr3t", At: at, Service: &ref{ID: "s1", Name: "Oil change"}, Available: true},
		{ID: "2", FullName: "Bob"},
	}

	out := render(t, &TableFormatter{}, rows)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)

	assert.Equal(t, []string{"ID", "FULL_NAME", "AT", "SERVICE", "AVAILABLE"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "Ada", "2024-06-10", "09:00", "Oil", "change", "true"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"2", "Bob", "-", "-", "false"}, strings.Fields(lines[2]))
	assert.NotContains(t, out, "s3cr3t")
	assert.NotContains(t, out, "PHONE")
}

func TestTableFormatter_SliceWide(t *testing.T) {
	out := render(t, &TableFormatter{Wide: true}, []*row{{ID: "1", Phone: "555"}})
	assert.Contains(t, out, "PHONE")
	assert.Contains(t, out, "CREATED")
	assert.Contains(t, out, "555")
}

func TestTableFormatter_EmptySlice(t *testing.T) {
	assert.Empty(t, render(t, &TableFormatter{}, []row{}))
}

func TestTableFormatter_MapSorted(t *testing.T) {
	out := render(t, &TableFormatter{}, map[string]any{"b": 2, "a": "x", "c": nil})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"a", "x"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"b", "2"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"c", "-"}, strings.Fields(lines[3]))
}

func TestTableFormatter_SingleStruct(t *testing.T) {
	out := render(t, &TableFormatter{}, ref{ID: "7", Name: "Brakes"})
	assert.Contains(t, out, "FIELD")
	assert.Contains(t, out, "name")
	assert.Contains(t, out, "Brakes")
}

func TestTableFormatter_FallbackToJSON(t *testing.T) {
	out := render(t, &TableFormatter{}, 42)
	assert.Equal(t, "42\n", out)
}

func TestFormatValue(t *testing.T) {
	var nilPtr *ref
	var iface any = "boxed"
	tests := []struct {
		name string
		in   reflect.Value
		want string
	}{
		{"string", reflect.ValueOf("x"), "x"},
		{"empty string", reflect.ValueOf(""), "-"},
		{"int", reflect.ValueOf(-3), "-3"},
		{"uint", reflect.ValueOf(uint8(4)), "4"},
		{"float", reflect.ValueOf(1.5), "1.50"},
		{"bool", reflect.ValueOf(true), "true"},
		{"slice", reflect.ValueOf([]int{1, 2}), "[2 items]"},
		{"empty slice", reflect.ValueOf([]int{}), "-"},
		{"map", reflect.ValueOf(map[string]int{"a": 1}), "{1 keys}"},
		{"duration", reflect.ValueOf(90 * time.Second), "1m30s"},
		{"zero time", reflect.ValueOf(time.Time{}), "-"},
		{"nil pointer", reflect.ValueOf(nilPtr), "-"},
		{"interface", reflect.ValueOf(&iface).Elem(), "boxed"},
		{"invalid", reflect.Value{}, "-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.in))
		})
	}
}

func TestToSnakeCase(t *testing.T) {
	assert.Equal(t, "Service_Type", toSnakeCase("ServiceType"))
	assert.Equal(t, "id", toSnakeCase("id"))
}

func TestTable_SortRows(t *testing.T) {
	table := &Table{Rows: [][]string{{"b"}, {}, {"a"}}}
	table.SortRows()
	assert.Equal(t, [][]string{{}, {"a"}, {"b"}}, table.Rows)
}
