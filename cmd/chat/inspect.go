package main

import (
	"campus-chat/repositories"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
)

// keyKinds maps a key prefix of the embedded backend to a display kind.
var keyKinds = []struct {
	prefix string
	kind   string
}{
	{"conv:", "CONVERSATION"},
	{"pair:", "PAIR"},
	{"part:", "PARTICIPANT"},
	{"member:", "MEMBER"},
	{"msg:", "MESSAGE"},
	{"user:", "USER"},
	{"feed:", "CHANGE"},
	{"seq:", "SEQUENCE"},
}

// describe renders a stored value for the dump table and the inspector page.
func describe(key string, val []byte) (kind, detail string) {
	kind = "RAW"
	for _, k := range keyKinds {
		if strings.HasPrefix(key, k.prefix) {
			kind = k.kind
			break
		}
	}
	switch kind {
	case "CONVERSATION":
		var c repositories.DiskConversation
		if err := json.Unmarshal(val, &c); err != nil {
			return kind, "Error: unmarshal failed"
		}
		return kind, fmt.Sprintf("pair=%s updated=%s", c.PairKey, c.UpdatedAt.Format(clock))
	case "PAIR":
		return kind, string(val)
	case "PARTICIPANT":
		var p repositories.DiskParticipant
		if err := json.Unmarshal(val, &p); err != nil {
			return kind, "Error: unmarshal failed"
		}
		return kind, p.UserID
	case "MESSAGE":
		var m repositories.DiskMessage
		if err := json.Unmarshal(val, &m); err != nil {
			return kind, "Error: unmarshal failed"
		}
		return kind, fmt.Sprintf("%s: %s (read=%t)", m.SenderID, truncate(m.Content, 60), m.Read)
	case "USER":
		var u repositories.User
		if err := json.Unmarshal(val, &u); err != nil {
			return kind, "Error: unmarshal failed"
		}
		return kind, strings.TrimSpace(fmt.Sprintf("%s %s <%s>", u.FirstName, u.LastName, u.Email))
	case "CHANGE":
		change, err := repositories.DecodeChange(val)
		if err != nil {
			return kind, "Error: unmarshal failed"
		}
		return kind, fmt.Sprintf("%s %s", change.Operation, change.Table)
	default:
		return kind, fmt.Sprintf("Size: %d bytes", len(val))
	}
}

func chatMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	row.Type, row.Detail = describe(key, val)
	return row
}

func runDump(_ context.Context, a *app, args []string) error {
	flags := flag.NewFlagSet("dump", flag.ContinueOnError)
	prefix := flags.String("prefix", "", "key prefix to scan, everything when empty")
	if err := flags.Parse(args); err != nil {
		return errUsage
	}
	if a.backend.db == nil {
		return fmt.Errorf("dump needs the %s backend", "badger")
	}

	table := newTable(a.out, "Key", "Type", "Detail")
	err := a.backend.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(val []byte) error {
				kind, detail := describe(key, val)
				table.Append([]string{key, kind, detail})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	table.Render()
	return nil
}

// runInspect serves the Badger inspector page until interrupted.
func runInspect(ctx context.Context, a *app, args []string) error {
	flags := flag.NewFlagSet("inspect", flag.ContinueOnError)
	port := flags.Int("port", 8081, "inspector port")
	if err := flags.Parse(args); err != nil {
		return errUsage
	}
	if a.backend.db == nil {
		return fmt.Errorf("inspect needs the %s backend", "badger")
	}
	endpoint := "/inspect"
	a.log.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d%s?prefix=msg:", *port, endpoint))
	database.StartDebugServer(a.backend.db, *port, endpoint, chatMapper)
	<-ctx.Done()
	return nil
}
