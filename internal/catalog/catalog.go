// Package catalog holds the static reference data describing every
// monitored U.S. embassy/consulate ("post") and visa type.
//
// The table is loaded once at startup from an embedded YAML file and never
// mutated afterwards, so lookups need no locking.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

//go:embed posts.yaml
var postsYAML []byte

// Backend identifies which crawler subsystem serves a post's slot data.
type Backend string

const (
	BackendCGI Backend = "cgi"
	BackendAIS Backend = "ais"
)

// Post is one monitored embassy/consulate. Immutable after load.
type Post struct {
	Code        string  `yaml:"code"`
	NameCN      string  `yaml:"name_cn"`
	NameEN      string  `yaml:"name_en"`
	Backend     Backend `yaml:"backend"`
	Region      string  `yaml:"region"`
	Continent   string  `yaml:"continent"`
	Country     string  `yaml:"country"`
	UTCOffset   float64 `yaml:"utc_offset"`
	CrawlerCode string  `yaml:"crawler_code"`
}

// BackendKey is the identifier sent to the crawler subsystem for this post.
// Several ais posts share one key (one language/region key serves multiple
// cities).
func (p Post) BackendKey() string { return p.CrawlerCode }

// Location is the key variant used downstream for data storage: the crawler
// code for cgi posts, the English name for ais posts.
func (p Post) Location() string {
	if p.Backend == BackendCGI {
		return p.CrawlerCode
	}
	return p.NameEN
}

func (p Post) Domestic() bool { return p.Region == "DOMESTIC" }

// TimeZone returns the post's fixed UTC offset zone.
func (p Post) TimeZone() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+g", p.UTCOffset), int(p.UTCOffset*3600))
}

func (p Post) String() string {
	return fmt.Sprintf("Post(code=%s, name_en=%s, backend=%s)", p.Code, p.NameEN, p.Backend)
}

// Region is a display grouping of posts.
type Region struct {
	Code   string `yaml:"code"`
	NameCN string `yaml:"name_cn"`
	NameEN string `yaml:"name_en"`
}

// CountryNode groups post codes of one country inside a region.
type CountryNode struct {
	Country string
	Codes   []string
}

// RegionNode is one level of the region → country → post-code tree.
type RegionNode struct {
	Region    string
	Countries []CountryNode
}

// Catalog is the loaded, immutable post table.
type Catalog struct {
	posts   []Post
	regions []Region
	byCode  map[string]Post
	byKey   map[string][]Post
}

type catalogFile struct {
	Regions []Region `yaml:"regions"`
	Posts   []Post   `yaml:"posts"`
}

// Load parses the embedded table and validates its invariants.
func Load() (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(postsYAML))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("catalog: parse posts.yaml: %w", err)
	}
	if len(f.Posts) == 0 {
		return nil, fmt.Errorf("catalog: empty post table")
	}

	regionCodes := make(map[string]struct{}, len(f.Regions))
	for _, r := range f.Regions {
		regionCodes[r.Code] = struct{}{}
	}

	c := &Catalog{
		posts:   f.Posts,
		regions: f.Regions,
		byCode:  make(map[string]Post, len(f.Posts)),
		byKey:   make(map[string][]Post),
	}
	for _, p := range f.Posts {
		if p.Code == "" || p.CrawlerCode == "" {
			return nil, fmt.Errorf("catalog: post %q missing code or crawler_code", p.NameEN)
		}
		if p.Backend != BackendCGI && p.Backend != BackendAIS {
			return nil, fmt.Errorf("catalog: post %s has unknown backend %q", p.Code, p.Backend)
		}
		if _, ok := regionCodes[p.Region]; !ok {
			return nil, fmt.Errorf("catalog: post %s references unknown region %q", p.Code, p.Region)
		}
		if _, dup := c.byCode[p.Code]; dup {
			return nil, fmt.Errorf("catalog: duplicate post code %q", p.Code)
		}
		c.byCode[p.Code] = p
		c.byKey[p.CrawlerCode] = append(c.byKey[p.CrawlerCode], p)
	}
	return c, nil
}

// All returns every post. Order follows the source table but callers must
// not rely on it.
func (c *Catalog) All() []Post {
	return append([]Post(nil), c.posts...)
}

// Regions returns the display regions.
func (c *Catalog) Regions() []Region {
	return append([]Region(nil), c.regions...)
}

// ByCode returns the post with the given short code, or false when absent.
func (c *Catalog) ByCode(code string) (Post, bool) {
	p, ok := c.byCode[code]
	return p, ok
}

// ByBackendKey returns every post sharing the given backend lookup key.
func (c *Catalog) ByBackendKey(key string) []Post {
	return append([]Post(nil), c.byKey[key]...)
}

// BackendKeys returns the deduplicated lookup keys for one backend, in
// first-seen table order.
func (c *Catalog) BackendKeys(b Backend) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, p := range c.posts {
		if p.Backend != b {
			continue
		}
		if _, ok := seen[p.CrawlerCode]; ok {
			continue
		}
		seen[p.CrawlerCode] = struct{}{}
		keys = append(keys, p.CrawlerCode)
	}
	return keys
}

// RegionTree groups posts into a region → country → codes tree, in
// first-seen table order.
func (c *Catalog) RegionTree() []RegionNode {
	var tree []RegionNode
	regionIdx := make(map[string]int)
	countryIdx := make(map[string]map[string]int)

	for _, p := range c.posts {
		ri, ok := regionIdx[p.Region]
		if !ok {
			ri = len(tree)
			regionIdx[p.Region] = ri
			countryIdx[p.Region] = make(map[string]int)
			tree = append(tree, RegionNode{Region: p.Region})
		}
		ci, ok := countryIdx[p.Region][p.Country]
		if !ok {
			ci = len(tree[ri].Countries)
			countryIdx[p.Region][p.Country] = ci
			tree[ri].Countries = append(tree[ri].Countries, CountryNode{Country: p.Country})
		}
		tree[ri].Countries[ci].Codes = append(tree[ri].Countries[ci].Codes, p.Code)
	}
	return tree
}
