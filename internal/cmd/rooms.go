package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/godigitalafrica/gdchat/internal/outfmt"
	"github.com/godigitalafrica/gdchat/internal/snapshot"
)

// conversationStore abstracts the file and Redis snapshot backends for
// the rooms and cache commands.
type conversationStore interface {
	Save(ctx context.Context, conv snapshot.Conversation) error
	Load(ctx context.Context, roomID string) (snapshot.Conversation, bool, error)
	List(ctx context.Context) ([]snapshot.Conversation, error)
	Sweep(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Delete(ctx context.Context, roomID string) error
}

type fileStoreAdapter struct {
	store *snapshot.FileStore
}

func (a fileStoreAdapter) Save(_ context.Context, conv snapshot.Conversation) error {
	return a.store.Save(conv)
}

func (a fileStoreAdapter) Load(_ context.Context, roomID string) (snapshot.Conversation, bool, error) {
	conv, ok := a.store.Load(roomID)
	return conv, ok, nil
}

func (a fileStoreAdapter) List(context.Context) ([]snapshot.Conversation, error) {
	return a.store.List()
}

func (a fileStoreAdapter) Sweep(context.Context) (int, error) {
	return a.store.Sweep()
}

func (a fileStoreAdapter) Clear(context.Context) error {
	a.store.Clear()
	return nil
}

func (a fileStoreAdapter) Delete(_ context.Context, roomID string) error {
	a.store.Delete(roomID)
	return nil
}

type redisStoreAdapter struct {
	store *snapshot.RedisStore
}

func (a redisStoreAdapter) Save(ctx context.Context, conv snapshot.Conversation) error {
	return a.store.Save(ctx, conv)
}

func (a redisStoreAdapter) Load(ctx context.Context, roomID string) (snapshot.Conversation, bool, error) {
	return a.store.Load(ctx, roomID)
}

func (a redisStoreAdapter) List(ctx context.Context) ([]snapshot.Conversation, error) {
	return a.store.List(ctx)
}

func (a redisStoreAdapter) Sweep(ctx context.Context) (int, error) {
	return a.store.Sweep(ctx)
}

func (a redisStoreAdapter) Clear(ctx context.Context) error {
	convs, err := a.store.List(ctx)
	if err != nil {
		return err
	}
	for _, conv := range convs {
		if err := a.store.Delete(ctx, conv.RoomID); err != nil {
			return err
		}
	}
	return nil
}

func (a redisStoreAdapter) Delete(ctx context.Context, roomID string) error {
	return a.store.Delete(ctx, roomID)
}

// openConversationStore picks the backend: a shared Redis cache when
// --redis (or GDCHAT_REDIS_ADDR) is set, the local file cache otherwise.
func openConversationStore(redisAddr string) (conversationStore, error) {
	if redisAddr == "" {
		redisAddr = strings.TrimSpace(os.Getenv("GDCHAT_REDIS_ADDR"))
	}
	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		return redisStoreAdapter{store: snapshot.NewRedisStore(rdb)}, nil
	}

	dir := strings.TrimSpace(os.Getenv("GDCHAT_CACHE_DIR"))
	if dir == "" {
		var err error
		dir, err = snapshot.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine cache directory: %w", err)
		}
	}
	return fileStoreAdapter{store: snapshot.NewFileStore(dir)}, nil
}

// newRoomsCmd lists locally cached guest conversations
func newRoomsCmd() *cobra.Command {
	var redisAddr string

	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "List cached guest conversations",
		Long:  "List guest conversations saved by the assistant, newest first. Entries older than 24 hours are evicted on sweep.",
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			store, err := openConversationStore(redisAddr)
			if err != nil {
				return err
			}
			convs, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			if outfmt.IsJSONL(cmd.Context()) {
				for _, conv := range convs {
					if err := printJSON(cmd, conv); err != nil {
						return err
					}
				}
				return nil
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"rooms": convs})
			}

			if len(convs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No cached conversations.")
				return nil
			}
			w := newTabWriterFromCmd(cmd)
			_, _ = fmt.Fprintln(w, "ROOM\tGUEST\tMESSAGES\tSAVED")
			for _, conv := range convs {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
					conv.RoomID, conv.Guest, len(conv.Messages), conv.SavedAt.Local().Format(time.RFC3339))
			}
			return w.Flush()
		}),
	}

	cmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address of the shared conversation cache (env GDCHAT_REDIS_ADDR)")
	return cmd
}
