package source

import (
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/AshishBagdane/go-parallel-tuner/pkg/api"
)

// --- Slice Source Tests ---

func TestFromSlice(t *testing.T) {
	src := FromSlice([]int{10, 20, 30})

	if src.SinglePass() {
		t.Error("slice source should not be single-pass")
	}
	if src.Len() != 3 {
		t.Errorf("Len() = %d, want 3", src.Len())
	}
	if src.Item(1) != 20 {
		t.Errorf("Item(1) = %v, want 20", src.Item(1))
	}

	// Must satisfy the Finite contract.
	var _ api.Finite = src
}

func TestFromAnyBorrowsSlice(t *testing.T) {
	items := []any{1, 2}
	src := FromAny(items)
	if src.Len() != 2 || src.Item(0) != 1 {
		t.Error("FromAny() should expose the slice unchanged")
	}
}

// --- Func Source Tests ---

func TestFromFunc(t *testing.T) {
	n := 0
	src := FromFunc(func() (any, bool) {
		if n >= 3 {
			return nil, false
		}
		n++
		return n, true
	})

	var _ api.Lazy = src
	if !src.SinglePass() {
		t.Error("func source should be single-pass")
	}

	got := Collect[int](src)
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("Collect() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d = %d, want %d", i, got[i], want[i])
		}
	}
}

// --- Chan Source Tests ---

func TestFromChan(t *testing.T) {
	ch := make(chan string, 3)
	ch <- "a"
	ch <- "b"
	ch <- "c"
	close(ch)

	src := FromChan(ch)
	var _ api.Lazy = src

	got := Collect[string](src)
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("Collect() = %v, want [a b c]", got)
	}
}

// --- CSV Source Tests ---

func TestCSVWithHeader(t *testing.T) {
	input := "name,age\nalice,30\nbob,25\n"
	src := FromCSV(strings.NewReader(input))

	records := Collect[map[string]any](src)
	if err := src.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0]["name"] != "alice" || records[0]["age"] != "30" {
		t.Errorf("first record = %v", records[0])
	}
	if records[1]["name"] != "bob" {
		t.Errorf("second record = %v", records[1])
	}
}

func TestCSVWithoutHeader(t *testing.T) {
	input := "1,2\n3,4\n"
	src := FromCSV(strings.NewReader(input)).WithoutHeader()

	records := Collect[map[string]any](src)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0]["col_1"] != "1" || records[0]["col_2"] != "2" {
		t.Errorf("first record = %v", records[0])
	}
}

func TestCSVCustomDelimiter(t *testing.T) {
	input := "a;b\nx;y\n"
	src := FromCSV(strings.NewReader(input)).WithDelimiter(';')

	records := Collect[map[string]any](src)
	if len(records) != 1 || records[0]["a"] != "x" {
		t.Errorf("records = %v", records)
	}
}

func TestCSVEmptyInput(t *testing.T) {
	src := FromCSV(strings.NewReader(""))
	if _, ok := src.Next(); ok {
		t.Error("empty input should be exhausted immediately")
	}
	if err := src.Err(); err != nil {
		t.Errorf("Err() = %v, want nil for clean EOF", err)
	}
}

// --- SQL Rows Source Tests ---

func TestFromRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id, url FROM endpoints").WillReturnRows(
		sqlmock.NewRows([]string{"id", "url"}).
			AddRow(1, "https://a.example").
			AddRow(2, "https://b.example").
			AddRow(3, "https://c.example"),
	)

	rows, err := db.Query("SELECT id, url FROM endpoints")
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	defer rows.Close()

	src := FromRows(rows)
	var _ api.Lazy = src

	records := Collect[map[string]any](src)
	if err := src.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0]["url"] != "https://a.example" {
		t.Errorf("first url = %v", records[0]["url"])
	}
	if records[2]["id"] != int64(3) {
		t.Errorf("third id = %v (%T)", records[2]["id"], records[2]["id"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}
