package internal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InspectRow is one persisted record as shown by the debug endpoint.
type InspectRow struct {
	Key  string `json:"key"`
	Size int    `json:"size"`
	Raw  any    `json:"raw,omitempty"`
}

// StartDebugServer exposes the operational side channels on a separate port:
// Prometheus metrics, a liveness probe, and a read-only BadgerDB inspector.
// Never exposed beyond the host; the fronting proxy does not route to it.
func StartDebugServer(log *slog.Logger, db *badger.DB, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/inspect", func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}

		var rows []InspectRow
		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					row := InspectRow{Key: string(item.Key()), Size: len(val)}
					var decoded any
					if err := json.Unmarshal(val, &decoded); err == nil {
						row.Raw = decoded
					}
					rows = append(rows, row)
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(struct {
			Prefix string       `json:"prefix"`
			Count  int          `json:"count"`
			Items  []InspectRow `json:"items"`
		}{prefix, len(rows), rows})
	})

	go func() {
		addr := fmt.Sprintf("localhost:%d", port)
		log.Info("Debug server listening", "address", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Warn("Debug server stopped", "error", err)
		}
	}()
}
