package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/gitmatch-ai/gitmatch/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetSearchHit(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	want := model.SearchResponse{
		SearchID: uuid.New(),
		Total:    3,
		Page:     1,
		PageSize: 20,
		Query:    "memory leak",
	}
	data, err := json.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}

	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "search:abc")).
		Return(mock.Result(mock.RedisString(string(data))))

	c := NewWithClient(client, testLogger())
	got, ok := c.GetSearch(context.Background(), "abc")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.SearchID != want.SearchID || got.Total != want.Total || got.Query != want.Query {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestGetSearchMissOnNil(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "search:abc")).
		Return(mock.Result(mock.RedisNil()))

	c := NewWithClient(client, testLogger())
	if _, ok := c.GetSearch(context.Background(), "abc"); ok {
		t.Fatal("expected miss")
	}
}

func TestGetSearchMissOnStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "search:abc")).
		Return(mock.ErrorResult(errors.New("connection refused")))

	c := NewWithClient(client, testLogger())
	if _, ok := c.GetSearch(context.Background(), "abc"); ok {
		t.Fatal("store failure must degrade to a miss")
	}
}

func TestGetSearchMissOnMalformedEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "search:abc")).
		Return(mock.Result(mock.RedisString("{not json")))

	c := NewWithClient(client, testLogger())
	if _, ok := c.GetSearch(context.Background(), "abc"); ok {
		t.Fatal("malformed entry must degrade to a miss")
	}
}

func TestSetSearchAppliesTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	client.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			if cmd[0] != "SET" || cmd[1] != "search:abc" {
				return false
			}
			for i, tok := range cmd {
				if tok == "EX" && i+1 < len(cmd) && cmd[i+1] == "300" {
					return true
				}
			}
			return false
		})).
		Return(mock.Result(mock.RedisString("OK")))

	c := NewWithClient(client, testLogger())
	c.SetSearch(context.Background(), "abc", &model.SearchResponse{Total: 1})
}

func TestSetSearchSwallowsWriteFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	client.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "SET" })).
		Return(mock.ErrorResult(errors.New("connection refused")))

	c := NewWithClient(client, testLogger())
	c.SetSearch(context.Background(), "abc", &model.SearchResponse{Total: 1})
}

func TestContextRoundTripKeying(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	sc := model.SearchContext{
		SearchID:  uuid.New(),
		Query:     "goroutine deadlock",
		NodeIDs:   []string{"I_1", "I_2"},
		RRFScores: map[string]float64{"I_1": 0.03, "I_2": 0.016},
	}
	data, err := json.Marshal(sc)
	if err != nil {
		t.Fatal(err)
	}
	key := "searchctx:" + sc.SearchID.String()

	client.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SET" && cmd[1] == key
		})).
		Return(mock.Result(mock.RedisString("OK")))
	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", key)).
		Return(mock.Result(mock.RedisString(string(data))))

	c := NewWithClient(client, testLogger())
	c.SetContext(context.Background(), sc.SearchID.String(), &sc)

	got, ok := c.GetContext(context.Background(), sc.SearchID.String())
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Query != sc.Query || len(got.NodeIDs) != 2 || got.RRFScores["I_1"] != 0.03 {
		t.Errorf("got %+v, want %+v", got, sc)
	}
}

func TestNilCacheIsAlwaysMiss(t *testing.T) {
	var c *Cache

	if _, ok := c.GetSearch(context.Background(), "abc"); ok {
		t.Fatal("nil cache must miss")
	}
	c.SetSearch(context.Background(), "abc", &model.SearchResponse{})
	c.Invalidate(context.Background())
	c.Close()
}

func TestInvalidateScansBothPrefixes(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	scanResult := func(keys ...string) rueidis.RedisMessage {
		elems := make([]rueidis.RedisMessage, len(keys))
		for i, k := range keys {
			elems[i] = mock.RedisString(k)
		}
		return mock.RedisArray(
			mock.RedisString("0"),
			mock.RedisArray(elems...),
		)
	}

	client.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN" && contains(cmd, "search:*")
		})).
		Return(mock.Result(scanResult("search:a", "search:b")))
	client.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "search:a", "search:b")).
		Return(mock.Result(mock.RedisInt64(2)))
	client.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN" && contains(cmd, "searchctx:*")
		})).
		Return(mock.Result(scanResult()))

	c := NewWithClient(client, testLogger())
	c.Invalidate(context.Background())
}

func contains(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}
