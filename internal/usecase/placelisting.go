package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"realtyimport/domain"
	"realtyimport/importer"
	"realtyimport/internal/config"
	"realtyimport/internal/logger"
)

// volatileTags не участвуют в отпечатке: они меняются между выгрузками
// одного и того же объекта.
var volatileTags = map[string]bool{
	"creation-date":    true,
	"last-update-date": true,
	"expire-date":      true,
	"url":              true,
}

// ListingPlacer - обработчик объявлений импорта: проверяет обязательные
// поля, ищет дубликаты по отпечатку содержимого и сохраняет объявление.
type ListingPlacer struct {
	store    ListingStore
	baseURL  string
	required []string
}

// NewListingPlacer создает обработчик объявлений. Базовый адрес ссылок
// и список обязательных полей берутся из cfg.
func NewListingPlacer(store ListingStore, cfg config.ListingConfig) *ListingPlacer {
	return &ListingPlacer{
		store:    store,
		baseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
		required: cfg.RequiredFields,
	}
}

// Handle реализует importer.ItemHandler. Ответ отправляется из отдельной горутины.
func (p *ListingPlacer) Handle(ctx context.Context, item domain.Listing, reply importer.ReplyFunc) {
	go func() {
		reply(p.Place(ctx, item))
	}()
}

// Place обрабатывает объявление и возвращает вердикт. Логгер берется из ctx.
func (p *ListingPlacer) Place(ctx context.Context, item domain.Listing) domain.Verdict {
	const op = "usecase.ListingPlacer.Place"
	log := logger.From(ctx).With(slog.String("component", "placer"), slog.String("op", op))

	for _, path := range p.required {
		if item.Value(path) == "" {
			log.Info("Listing rejected", slog.String("missing", path))
			return domain.Rejected{Reason: fmt.Sprintf("required field %q is missing", path)}
		}
	}

	payload, err := json.Marshal(item.Element)
	if err != nil {
		log.Error("Failed to encode listing", slog.Any("error", err))
		return domain.Failed{Error: fmt.Sprintf("failed to encode listing: %v", err)}
	}
	rec := domain.ListingRecord{
		Format:      item.Format,
		ExternalID:  item.ID,
		Fingerprint: Fingerprint(item.Element),
		Images:      imageURLs(item.Element),
		Payload:     payload,
	}

	similarID, found, err := p.store.FindSimilar(ctx, rec)
	if err != nil {
		log.Error("Duplicate lookup failed", slog.Any("error", err))
		return domain.Failed{Error: err.Error()}
	}
	if found {
		log.Info("Listing duplicates existing one", slog.String("similar_id", similarID))
		return domain.Duplicate{SimilarURL: p.listingURL(similarID)}
	}

	stored, err := p.store.SaveListing(ctx, rec)
	if err != nil {
		log.Error("Failed to save listing", slog.Any("error", err))
		return domain.Failed{Error: err.Error()}
	}
	url := p.listingURL(stored.ID.String())
	log.Debug("Listing placed", slog.String("listing_url", url))
	return domain.Placed{URL: url, Views: stored.Views}
}

func (p *ListingPlacer) listingURL(id string) string {
	return p.baseURL + "/listings/" + id
}

func imageURLs(el *domain.Element) []string {
	images := el.All("image")
	urls := make([]string, 0, len(images))
	for _, img := range images {
		if img.Text != "" {
			urls = append(urls, img.Text)
		}
	}
	return urls
}

// Fingerprint - хеш содержимого объявления без атрибутов корневого
// элемента (идентификатора) и без меняющихся дат.
func Fingerprint(el *domain.Element) string {
	h := sha256.New()
	writeChildren(h, el)
	return hex.EncodeToString(h.Sum(nil))
}

func writeChildren(w io.Writer, el *domain.Element) {
	names := make([]string, 0, len(el.Children))
	for name := range el.Children {
		if !volatileTags[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		for _, child := range el.Children[name] {
			writeElement(w, child)
		}
	}
}

func writeElement(w io.Writer, el *domain.Element) {
	fmt.Fprintf(w, "<%s", el.Name)
	keys := make([]string, 0, len(el.Attrs))
	for k := range el.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, " %s=%q", k, el.Attrs[k])
	}
	fmt.Fprintf(w, ">%s", strings.ToLower(strings.Join(strings.Fields(el.Text), " ")))
	writeChildren(w, el)
	fmt.Fprintf(w, "</%s>", el.Name)
}
