package corpus

import (
	"database/sql"
	"encoding/json"

	"github.com/mattn/go-sqlite3"

	"github.com/setexpand/setexpand/internal/similarity"
)

// DriverName is the database/sql driver with the similarity functions
// registered on every connection:
//
//	overlap_sim(json_a, json_b)  overlap of two JSON string arrays
//	overlap_num(json_a, json_b)  overlap of two JSON arrays compared as numbers
//	t_test(json_a, json_b)       Welch t-test p-value of two JSON arrays
//	to_arr(value)                aggregate collecting values into a JSON array
const DriverName = "sqlite3_setexpand"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: registerFunctions,
	})
}

func registerFunctions(conn *sqlite3.SQLiteConn) error {
	if err := conn.RegisterFunc("overlap_sim", overlapSimSQL, true); err != nil {
		return err
	}
	if err := conn.RegisterFunc("overlap_num", overlapNumSQL, true); err != nil {
		return err
	}
	if err := conn.RegisterFunc("t_test", tTestSQL, true); err != nil {
		return err
	}
	return conn.RegisterAggregator("to_arr", newToArr, true)
}

func overlapSimSQL(a, b string) (float64, error) {
	va, err := decodeStrings(a)
	if err != nil {
		return 0, err
	}
	vb, err := decodeStrings(b)
	if err != nil {
		return 0, err
	}
	return similarity.Overlap(va, vb), nil
}

func overlapNumSQL(a, b string) (float64, error) {
	va, err := decodeStrings(a)
	if err != nil {
		return 0, err
	}
	vb, err := decodeStrings(b)
	if err != nil {
		return 0, err
	}
	return similarity.OverlapFloats(similarity.ParseFloats(va), similarity.ParseFloats(vb)), nil
}

func tTestSQL(a, b string) (float64, error) {
	va, err := decodeStrings(a)
	if err != nil {
		return 0, err
	}
	vb, err := decodeStrings(b)
	if err != nil {
		return 0, err
	}
	return similarity.WelchTTest(similarity.ParseFloats(va), similarity.ParseFloats(vb)), nil
}

// toArr collects the values of a group as strings.
type toArr struct {
	values []string
}

func newToArr() *toArr {
	return &toArr{values: []string{}}
}

func (t *toArr) Step(v interface{}) {
	switch x := v.(type) {
	case nil:
	case string:
		t.values = append(t.values, x)
	case []byte:
		t.values = append(t.values, string(x))
	case int64:
		t.values = append(t.values, similarity.FormatNumber(float64(x)))
	case float64:
		t.values = append(t.values, similarity.FormatNumber(x))
	}
}

func (t *toArr) Done() (string, error) {
	b, err := json.Marshal(t.values)
	return string(b), err
}

// decodeStrings accepts a JSON array of strings or numbers.
func decodeStrings(s string) ([]string, error) {
	var raw []interface{}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		switch x := v.(type) {
		case string:
			out = append(out, x)
		case float64:
			out = append(out, similarity.FormatNumber(x))
		}
	}
	return out, nil
}

func encodeStrings(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, _ := json.Marshal(values)
	return string(b)
}
