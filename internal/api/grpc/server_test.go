package grpc

import (
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/setexpand/setexpand/internal/api"
	"github.com/setexpand/setexpand/internal/corpus"
	"github.com/setexpand/setexpand/internal/expand"
	"github.com/setexpand/setexpand/internal/keyword"
	"github.com/setexpand/setexpand/internal/seedset"
)

const grpcDump = `
title: Seed
types: object, int64
"k1", "5"
"k2", "7"

title: List of matches
types: object, int64
"k1", "5"
"k2", "7"
"k3", "6"
"k4", "6.5"
`

func newTestClient(t *testing.T) *ExpansionClient {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.db")
	_, err := corpus.Ingest(context.Background(), strings.NewReader(grpcDump), path)
	require.NoError(t, err)
	store, err := corpus.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := api.NewService(
		store,
		seedset.NewSessionStore(seedset.Options{}),
		expand.New(store, expand.Options{}),
		keyword.NewSearcher(store, nil),
		nil,
	)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterExpansionServer(srv, NewServer(svc))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewExpansionClient(conn)
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestExpansionOverGRPC(t *testing.T) {
	client := newTestClient(t)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-request-id", "grpc-req-1")

	seed, err := client.Call(ctx, "PostSeedSet", mustStruct(t, map[string]interface{}{
		"tableIDs": []interface{}{1, 1},
		"rowIDs":   []interface{}{"0", "1"},
	}))
	require.NoError(t, err)
	session := seed.GetFields()["session_id"].GetStringValue()
	require.NotEmpty(t, session)
	assert.Equal(t, "grpc-req-1", seed.GetFields()["request_id"].GetStringValue())
	assert.Equal(t, float64(2), seed.GetFields()["num_cols"].GetNumberValue())

	res, err := client.Call(ctx, "DotOp", mustStruct(t, map[string]interface{}{
		"session":      session,
		"dotOp":        "xr",
		"sliders":      []interface{}{50, 50},
		"rowsReturned": 5,
	}))
	require.NoError(t, err)
	rows := res.GetFields()["rows"].GetListValue().GetValues()
	require.Len(t, rows, 2)
	var keys []string
	for _, r := range rows {
		keys = append(keys, r.GetListValue().GetValues()[0].GetStringValue())
	}
	assert.ElementsMatch(t, []string{"k3", "k4"}, keys)

	swapped, err := client.Call(ctx, "SwapCells", mustStruct(t, map[string]interface{}{
		"session": session,
		"rowIDs":  []interface{}{0, 1},
		"colIDs":  []interface{}{1, 1},
	}))
	require.NoError(t, err)
	first := swapped.GetFields()["rows"].GetListValue().GetValues()[0].GetListValue().GetValues()
	assert.Equal(t, "7", first[1].GetStringValue())

	deleted, err := client.Call(ctx, "DeleteColumns", mustStruct(t, map[string]interface{}{
		"session": session,
		"del":     1,
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(1), deleted.GetFields()["num_cols"].GetNumberValue())

	kw, err := client.Call(ctx, "Keyword", mustStruct(t, map[string]interface{}{"keyword": "matches"}))
	require.NoError(t, err)
	assert.Len(t, kw.GetFields()["tables"].GetListValue().GetValues(), 1)
}

func TestGRPCErrorCodes(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		method string
		req    map[string]interface{}
		code   codes.Code
	}{
		{"unknown session", "DotOp", map[string]interface{}{"session": "nope", "dotOp": "xr"}, codes.NotFound},
		{"unsupported op", "DotOp", map[string]interface{}{"session": "nope", "dotOp": "fill"}, codes.InvalidArgument},
		{"bad ids", "PostSeedSet", map[string]interface{}{"tableIDs": []interface{}{1}, "rowIDs": []interface{}{}}, codes.InvalidArgument},
		{"non-integer", "DeleteColumns", map[string]interface{}{"session": "x", "del": 1.5}, codes.InvalidArgument},
		{"no keywords", "Keyword", map[string]interface{}{}, codes.InvalidArgument},
		{"short swap", "SwapCells", map[string]interface{}{"session": "x", "rowIDs": []interface{}{0}}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Call(ctx, tt.method, mustStruct(t, tt.req))
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err), err.Error())
		})
	}
}
