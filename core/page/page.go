package page

import (
	"io/fs"
	"path"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	appfs "github.com/trezcool/kia/fs"
)

const pagesDir = "assets/pages"

// Page slugs
const (
	PrivacyPolicy = "privacy-policy"
)

var ErrNotFound = errors.New("page not found")

type (
	Section struct {
		Heading string `json:"heading" yaml:"heading"`
		Content string `json:"content" yaml:"content"`
	}

	Page struct {
		Title       string    `json:"title" yaml:"title"`
		LastUpdated string    `json:"last_updated" yaml:"last_updated"`
		Sections    []Section `json:"sections" yaml:"sections"`
	}
)

var (
	cache   = map[string]Page{}
	cacheMu sync.RWMutex
)

// Get loads the page stored as <slug>.yaml in the embedded assets.
func Get(slug string) (Page, error) {
	cacheMu.RLock()
	p, ok := cache[slug]
	cacheMu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := load(appfs.FS, slug)
	if err != nil {
		return Page{}, err
	}
	cacheMu.Lock()
	cache[slug] = p
	cacheMu.Unlock()
	return p, nil
}

func load(fsys fs.FS, slug string) (Page, error) {
	data, err := fs.ReadFile(fsys, path.Join(pagesDir, slug+".yaml"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Page{}, ErrNotFound
		}
		return Page{}, errors.Wrap(err, "reading page")
	}
	var p Page
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Page{}, errors.Wrapf(err, "decoding page %q", slug)
	}
	return p, nil
}
