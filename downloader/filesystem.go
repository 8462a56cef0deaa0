package downloader

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Filesystem caches downloaded packages in a single JSON file, so a
// re-run of the pipeline doesn't have to hit the carrier's servers
// again.
type Filesystem struct {
	Path    string
	Records map[string]fsRecord

	mutex sync.Mutex
}

type fsRecord struct {
	Body        string `json:"body"`
	RetrievedAt string `json:"retrieved_at"`
}

func NewFilesystem(path string) (*Filesystem, error) {
	fs := &Filesystem{
		Path:    path,
		Records: map[string]fsRecord{},
	}

	if err := fs.load(); err != nil {
		return nil, err
	}

	return fs, nil
}

func (f *Filesystem) Get(ctx context.Context, url string, options GetOptions) ([]byte, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if options.Cache {
		if record, found := f.Records[url]; found {
			retrievedAt, err := time.Parse(time.RFC3339, record.RetrievedAt)
			if err != nil {
				return nil, err
			}
			if retrievedAt.Add(options.CacheTTL).After(time.Now()) {
				body, err := base64.StdEncoding.DecodeString(record.Body)
				if err != nil {
					return nil, fmt.Errorf("decoding: %w", err)
				}
				return body, nil
			}
		}
	}

	body, err := HTTPGet(ctx, url, options)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}

	if options.Cache {
		f.Records[url] = fsRecord{
			Body:        base64.StdEncoding.EncodeToString(body),
			RetrievedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if err := f.save(); err != nil {
			return nil, fmt.Errorf("saving: %w", err)
		}
	}

	return body, nil
}

func (f *Filesystem) load() error {
	_, err := os.Stat(f.Path)
	if os.IsNotExist(err) {
		return nil
	}

	buf, err := os.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("reading: %w", err)
	}

	if err := json.Unmarshal(buf, &f.Records); err != nil {
		return fmt.Errorf("unmarshalling: %w", err)
	}

	return nil
}

func (f *Filesystem) save() error {
	buf, err := json.Marshal(f.Records)
	if err != nil {
		return fmt.Errorf("marshalling: %w", err)
	}

	if err := os.WriteFile(f.Path, buf, 0644); err != nil {
		return fmt.Errorf("writing: %w", err)
	}

	return nil
}
