// Command catalog-ingest loads a gzip-compressed JSONL product feed into the
// products table. Each line is one product document as exported by the
// storefront catalog. Feed files are parsed concurrently; writes are batched
// upserts so re-running the ingest refreshes prices and stock in place.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/batibatii/textilecom-webhook-receiver/internal/storage/postgres"
)

const (
	batchSize     = 500
	progressEvery = 10_000
)

type product struct {
	ID    string
	Title string
	Brand string
	Price decimal.Decimal
	Stock int64
}

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	files := flag.Args()
	if len(files) == 0 {
		slog.Error("usage: catalog-ingest [flags] feed1.jsonl.gz [feed2.jsonl.gz ...]")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	products := make(chan product, batchSize)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(products)

		readers, rctx := errgroup.WithContext(gctx)
		for _, f := range files {
			readers.Go(streamFeedFile(rctx, f, products))
		}
		return readers.Wait()
	})
	g.Go(func() error {
		return writeProducts(gctx, pool, products)
	})

	return g.Wait()
}

// streamFeedFile decodes one gzipped JSONL feed and sends its products on out.
func streamFeedFile(ctx context.Context, path string, out chan<- product) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var count uint64
		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			p, err := decodeProduct(line)
			if err != nil {
				return errors.Wrapf(err, "decode product in %s", path)
			}

			select {
			case out <- p:
			case <-ctx.Done():
				return ctx.Err()
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("feed progress", slog.String("file", path), slog.Uint64("products", count))
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("feed complete", slog.String("file", path), slog.Uint64("products", count))
		return nil
	}
}

// decodeProduct parses one feed line. Unknown fields are skipped so the
// storefront can extend the feed without breaking ingest.
func decodeProduct(line []byte) (product, error) {
	var p product
	d := jx.DecodeBytes(line)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			p.ID = v
			return err
		case "title":
			v, err := d.Str()
			p.Title = v
			return err
		case "brand":
			v, err := d.Str()
			p.Brand = v
			return err
		case "price":
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			v, err := decimal.NewFromString(string(raw))
			if err != nil {
				return errors.Wrap(err, "parse price")
			}
			p.Price = v
			return nil
		case "stock":
			v, err := d.Int64()
			p.Stock = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return product{}, err
	}
	if p.ID == "" {
		return product{}, errors.New("product missing id")
	}
	return p, nil
}

// writeProducts drains the channel, upserting in batches.
func writeProducts(ctx context.Context, pool *pgxpool.Pool, in <-chan product) error {
	const upsert = `
		INSERT INTO products (id, title, brand, price, stock, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			brand = EXCLUDED.brand,
			price = EXCLUDED.price,
			stock = EXCLUDED.stock,
			updated_at = now()`

	var total int
	batch := &pgx.Batch{}
	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "flush product batch")
		}
		total += batch.Len()
		slog.Info("write progress", slog.Int("written", total))
		batch = &pgx.Batch{}
		return nil
	}

	for p := range in {
		batch.Queue(upsert, p.ID, p.Title, p.Brand, p.Price, p.Stock)
		if batch.Len() >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}
