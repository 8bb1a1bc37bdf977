package history

import (
	"path/filepath"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/ooni/dnsbench/internal/database"
	"github.com/ooni/dnsbench/internal/model"
	"github.com/ooni/dnsbench/internal/selection"
	"github.com/upper/db/v4"
)

func newSession(t *testing.T) db.Session {
	sess, err := database.Connect(filepath.Join(t.TempDir(), "history.sqlite3"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		sess.Close()
	})
	return sess
}

func TestList(t *testing.T) {
	t.Run("without runs", func(t *testing.T) {
		handler := memory.New()
		log.SetHandler(handler)
		if err := List(newSession(t), DefaultLimit); err != nil {
			t.Fatal(err)
		}
		if len(handler.Entries) != 1 || handler.Entries[0].Message != "no runs yet" {
			t.Fatal("unexpected entries")
		}
	})

	t.Run("with runs", func(t *testing.T) {
		sess := newSession(t)
		for idx := 0; idx < 3; idx++ {
			if _, err := database.CreateRun(sess, "udp", []string{"google.com"}, 2); err != nil {
				t.Fatal(err)
			}
		}
		handler := memory.New()
		log.SetHandler(handler)
		if err := List(sess, 2); err != nil {
			t.Fatal(err)
		}
		if len(handler.Entries) != 2 {
			t.Fatal("unexpected number of entries", len(handler.Entries))
		}
		for idx, entry := range handler.Entries {
			if entry.Fields["type"] != "run_item" || entry.Fields["index"] != idx {
				t.Fatal("unexpected fields", entry.Fields)
			}
		}
	})
}

func TestShow(t *testing.T) {
	sess := newSession(t)
	run, err := database.CreateRun(sess, "udp", []string{"google.com"}, 2)
	if err != nil {
		t.Fatal(err)
	}
	summaries := []selection.Summary{
		{Resolver: "1.1.1.1", SuccessCount: 1, MeanLatencyMs: 10, MedianLatencyMs: 10},
		{Resolver: "8.8.8.8", SuccessCount: 1, MeanLatencyMs: 20, MedianLatencyMs: 20},
	}
	ranked := model.RankedSelection{{Resolver: "1.1.1.1", MeanLatencyMs: 10, SuccessCount: 1}}
	if err := run.Finished(sess, summaries, ranked); err != nil {
		t.Fatal(err)
	}

	t.Run("an existing run", func(t *testing.T) {
		handler := memory.New()
		log.SetHandler(handler)
		if err := Show(sess, run.UUID); err != nil {
			t.Fatal(err)
		}
		if len(handler.Entries) != 3 {
			t.Fatal("unexpected number of entries", len(handler.Entries))
		}
		if handler.Entries[1].Fields["rank"] != 1 || handler.Entries[2].Fields["rank"] != 0 {
			t.Fatal("unexpected ranks")
		}
	})

	t.Run("a missing run", func(t *testing.T) {
		if err := Show(sess, "missing"); err == nil {
			t.Fatal("expected an error")
		}
	})
}
