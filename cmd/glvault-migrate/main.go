package main

import (
	"context"
	"flag"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/genlayer/glvault/pkg/storage"
)

var (
	srcBackend = flag.String("src-backend", "bolt", "Source backend: bolt or redis")
	srcDataDir = flag.String("src-data-dir", "/var/lib/glvault", "Source data directory (bolt)")
	srcRedis   = flag.String("src-redis-addr", "localhost:6379", "Source Redis address")
	srcRedisPw = flag.String("src-redis-password", "", "Source Redis password")
	srcRedisDB = flag.Int("src-redis-db", 0, "Source Redis database number")

	dstBackend = flag.String("dst-backend", "redis", "Destination backend: bolt or redis")
	dstDataDir = flag.String("dst-data-dir", "/var/lib/glvault-new", "Destination data directory (bolt)")
	dstRedis   = flag.String("dst-redis-addr", "localhost:6379", "Destination Redis address")
	dstRedisPw = flag.String("dst-redis-password", "", "Destination Redis password")
	dstRedisDB = flag.Int("dst-redis-db", 1, "Destination Redis database number")

	dryRun  = flag.Bool("dry-run", false, "Show what would be migrated without making changes")
	timeout = flag.Duration("timeout", 5*time.Minute, "Overall migration timeout")
)

func main() {
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("glvault Backend Migration Tool")
	log.Println("==============================")

	if *srcBackend == *dstBackend && *srcBackend == "bolt" && *srcDataDir == *dstDataDir {
		log.Fatal("Source and destination are the same bolt database")
	}
	if *srcBackend == *dstBackend && *srcBackend == "redis" &&
		*srcRedis == *dstRedis && *srcRedisDB == *dstRedisDB {
		log.Fatal("Source and destination are the same Redis database")
	}

	src, err := storage.Open(storage.Options{
		Backend:       *srcBackend,
		DataDir:       *srcDataDir,
		RedisAddr:     *srcRedis,
		RedisPassword: *srcRedisPw,
		RedisDB:       *srcRedisDB,
	})
	if err != nil {
		log.Fatalf("Failed to open source backend: %v", err)
	}
	defer src.Close()

	dst, err := storage.Open(storage.Options{
		Backend:       *dstBackend,
		DataDir:       *dstDataDir,
		RedisAddr:     *dstRedis,
		RedisPassword: *dstRedisPw,
		RedisDB:       *dstRedisDB,
	})
	if err != nil {
		log.Fatalf("Failed to open destination backend: %v", err)
	}
	defer dst.Close()

	log.Printf("Source:      %s", src.Name())
	log.Printf("Destination: %s", dst.Name())
	log.Printf("Dry run:     %v", *dryRun)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := migrate(ctx, src, dst, *dryRun); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if *dryRun {
		log.Println("\nDry run completed. No changes made.")
		log.Println("Run without --dry-run to perform the migration.")
	} else {
		log.Println("\n✓ Migration completed successfully!")
		log.Println("Source data has been preserved for rollback.")
		log.Println("After verifying the new backend, point STORAGE_BACKEND at it and restart the vault.")
	}
}

func migrate(ctx context.Context, src, dst storage.Backend, dryRun bool) error {
	keys, err := src.Scan(ctx, "glvault:")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		log.Println("✓ No vault keys found in source - nothing to migrate")
		return nil
	}
	sort.Strings(keys)

	counts := map[string]int{}
	for _, k := range keys {
		counts[category(k)]++
	}
	log.Printf("Found %d keys to migrate:", len(keys))
	log.Printf("  credentials:   %d", counts["credential"])
	log.Printf("  alias index:   %d", counts["index"])
	log.Printf("  audit entries: %d", counts["audit"])
	log.Printf("  audit indexes: %d", counts["audit_index"])

	if dryRun {
		log.Println("\n[DRY RUN] Would perform the following operations:")
		log.Printf("1. Copy %d keys from %s to %s", len(keys), src.Name(), dst.Name())
		log.Println("2. Preserve all source data for rollback")
		return nil
	}

	log.Println("\nMigrating keys...")
	migrated := 0
	for _, k := range keys {
		value, found, err := src.Get(ctx, k)
		if err != nil {
			return err
		}
		if !found {
			// Deleted between Scan and Get; fine to skip.
			log.Printf("⚠ Warning: Key %s vanished during migration, skipping", k)
			continue
		}
		if err := dst.Set(ctx, k, value); err != nil {
			return err
		}
		migrated++
		if migrated%100 == 0 {
			log.Printf("  Migrated %d/%d...", migrated, len(keys))
		}
	}

	log.Printf("✓ Migrated %d/%d keys to %s", migrated, len(keys), dst.Name())
	return nil
}

func category(key string) string {
	rest := strings.TrimPrefix(key, "glvault:")
	switch {
	case strings.HasPrefix(rest, "audit_index:"):
		return "audit_index"
	case strings.HasPrefix(rest, "audit:"):
		return "audit"
	case rest == "index":
		return "index"
	case strings.HasPrefix(rest, "key:"):
		return "credential"
	default:
		return "other"
	}
}
