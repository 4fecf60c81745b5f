// Command inspect dumps the persisted message store of a stopped server.
// Read-only: it can be pointed at a live data directory without taking the
// Badger lock.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// storedMessage mirrors the JSON layout written by the message repository.
type storedMessage struct {
	ID           string `json:"id"`
	Conversation string `json:"conversation"`
	Sender       string `json:"sender"`
	Text         string `json:"text"`
	CreatedAt    int64  `json:"created_at"`
	Status       string `json:"status"`
}

func main() {
	dbPath := flag.String("db", "/tmp/dm-core", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Conversation", "Timestamp", "Sender", "Status", "Text"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()

			err := item.Value(func(v []byte) error {
				var stored storedMessage
				if err := json.Unmarshal(v, &stored); err != nil {
					// Keep scanning; one broken record is not a reason to stop.
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}

				table.Append([]string{
					shortKey(string(item.Key())),
					stored.Conversation,
					time.Unix(0, stored.CreatedAt).Format("15:04:05"),
					stored.Sender,
					colorStatus(stored.Status),
					stored.Text,
				})
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	color.Cyanln(fmt.Sprintf("%d record(s)", count))
}

func colorStatus(status string) string {
	switch status {
	case "delivered":
		return color.Yellow.Sprint(status)
	case "seen":
		return color.Green.Sprint(status)
	default:
		return status
	}
}

// shortKey trims the UUID part of the message id for readability.
func shortKey(key string) string {
	if len(key) > 48 {
		return key[:48] + "..."
	}
	return key
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
