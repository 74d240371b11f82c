package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	seterrors "github.com/setexpand/setexpand/internal/errors"
	"github.com/setexpand/setexpand/internal/seedset"
)

// listParam returns every value of a query parameter. Repeated parameters
// and comma separated values are both accepted.
func listParam(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func intsParam(r *http.Request, name string) ([]int, error) {
	raw := listParam(r, name)
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, seterrors.NewInvalidInput(fmt.Sprintf("%s: %q is not an integer", name, v))
		}
		out = append(out, n)
	}
	return out, nil
}

func intParam(r *http.Request, name string) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, seterrors.NewInvalidInput(fmt.Sprintf("%s: %q is not an integer", name, v))
	}
	return n, nil
}

// sessionParam returns the required session id.
func sessionParam(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.URL.Query().Get("session"))
	if id == "" {
		return "", seterrors.NewInvalidInput("session is required")
	}
	return id, nil
}

// rowRefs pairs tableIDs with rowIDs by position.
func rowRefs(r *http.Request) ([]seedset.RowRef, error) {
	tables, err := intsParam(r, "tableIDs")
	if err != nil {
		return nil, err
	}
	rows, err := intsParam(r, "rowIDs")
	if err != nil {
		return nil, err
	}
	if len(tables) != len(rows) {
		return nil, seterrors.NewInvalidInput(
			fmt.Sprintf("tableIDs and rowIDs differ in length (%d vs %d)", len(tables), len(rows)))
	}
	refs := make([]seedset.RowRef, len(tables))
	for i := range tables {
		refs[i] = seedset.RowRef{TableID: int64(tables[i]), RowID: int64(rows[i])}
	}
	return refs, nil
}
