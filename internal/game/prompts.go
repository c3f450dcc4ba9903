package game

import (
	"bufio"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultPrompts is the built-in prompt catalog. A deployment can replace it
// by pointing PROMPTS_FILE at a plain text file with one prompt per line.
var DefaultPrompts = []string{
	"Name a food that's better the next day",
	"Name a famous cow",
	"Name something you'd bring to a desert island",
	"Name an animal that would make a terrible pet",
	"Name a pizza topping",
	"Name something you lose all the time",
	"Name a superpower everyone secretly wants",
	"Name a movie everyone has seen",
	"Name something you shouldn't say at a funeral",
	"Name a smell that reminds you of childhood",
	"Name a sport that's boring to watch",
	"Name something people pretend to like",
	"Name a fruit that doesn't belong in a salad",
	"Name a chore nobody wants to do",
	"Name something you'd find in a junk drawer",
	"Name a famous duo",
	"Name a word that sounds funny when you say it twice",
	"Name something you'd do with a million dollars",
	"Name an excuse for being late",
	"Name something that's overpriced at the cinema",
	"Name a board game that ruins friendships",
	"Name something you'd take from a hotel room",
	"Name an instrument that's annoying to live with",
	"Name a country you'd visit for the food",
	"Name something that always breaks right after the warranty ends",
	"Name a song everyone knows the chorus to",
	"Name something you'd hate to find in your shoe",
	"Name a job you'd never want",
	"Name something that gets better with age",
	"Name the worst place to forget your phone",
}

// PromptSelector picks prompts for rounds, avoiding prompts a room has
// already used. Safe for concurrent use by many rooms.
type PromptSelector struct {
	mu      sync.Mutex
	catalog []string
	rng     *rand.Rand
}

// NewPromptSelector builds a selector over the given catalog, falling back
// to DefaultPrompts when the catalog is empty.
func NewPromptSelector(catalog []string) *PromptSelector {
	if len(catalog) == 0 {
		catalog = DefaultPrompts
	}
	return &PromptSelector{
		catalog: catalog,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// LoadPrompts reads a prompt catalog from a plain text file, one prompt per
// line. Blank lines and lines starting with '#' are skipped.
func LoadPrompts(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var prompts []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		prompts = append(prompts, line)
	}
	return prompts, scanner.Err()
}

// Next returns a prompt drawn uniformly at random from the catalog,
// excluding anything in used. When the exclusion empties the candidate set,
// Next falls back to the entire catalog: very long rooms repeat prompts
// rather than running out.
func (ps *PromptSelector) Next(used []string) string {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	usedSet := make(map[string]struct{}, len(used))
	for _, p := range used {
		usedSet[p] = struct{}{}
	}

	candidates := make([]string, 0, len(ps.catalog))
	for _, p := range ps.catalog {
		if _, ok := usedSet[p]; !ok {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		candidates = ps.catalog
	}
	return candidates[ps.rng.Intn(len(candidates))]
}

// Size reports the catalog size.
func (ps *PromptSelector) Size() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.catalog)
}
