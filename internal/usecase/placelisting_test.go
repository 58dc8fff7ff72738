package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"realtyimport/domain"
	"realtyimport/internal/config"
	"realtyimport/internal/usecase/mocks"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newListing(id string, children map[string]string, images ...string) domain.Listing {
	el := domain.NewElement("object")
	el.Attrs["id"] = id
	for name, text := range children {
		child := domain.NewElement(name)
		child.Text = text
		el.Children[name] = []*domain.Element{child}
	}
	for _, url := range images {
		img := domain.NewElement("image")
		img.Text = url
		el.Children["image"] = append(el.Children["image"], img)
	}
	return domain.Listing{ID: id, Format: "realtypult", Element: el}
}

func newPlacer(store ListingStore, required ...string) *ListingPlacer {
	return NewListingPlacer(store, config.ListingConfig{
		PublicBaseURL:  "http://your-site.ru/",
		RequiredFields: required,
	})
}

func TestPlace_Saved(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := mocks.NewMockListingStore(ctrl)
	id := uuid.New()
	item := newListing("679511", map[string]string{"type": "flat"}, "a.jpg", "b.jpg")

	store.EXPECT().FindSimilar(gomock.Any(), gomock.Any()).Return("", false, nil)
	store.EXPECT().SaveListing(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, rec domain.ListingRecord) (domain.StoredListing, error) {
			assert.Equal(t, "realtypult", rec.Format)
			assert.Equal(t, "679511", rec.ExternalID)
			assert.Equal(t, []string{"a.jpg", "b.jpg"}, rec.Images)
			assert.NotEmpty(t, rec.Fingerprint)
			assert.Contains(t, string(rec.Payload), `"flat"`)
			return domain.StoredListing{ID: id, Views: 15}, nil
		})

	v := newPlacer(store).Place(context.Background(), item)

	assert.Equal(t, domain.Placed{URL: "http://your-site.ru/listings/" + id.String(), Views: 15}, v)
}

func TestPlace_MissingRequiredField(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := mocks.NewMockListingStore(ctrl)
	item := newListing("1", map[string]string{"type": "flat"})

	v := newPlacer(store, "type", "price").Place(context.Background(), item)

	assert.Equal(t, domain.Rejected{Reason: `required field "price" is missing`}, v)
}

func TestPlace_Duplicate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := mocks.NewMockListingStore(ctrl)
	store.EXPECT().FindSimilar(gomock.Any(), gomock.Any()).Return("abc", true, nil)

	v := newPlacer(store).Place(context.Background(), newListing("1", nil))

	assert.Equal(t, domain.Duplicate{SimilarURL: "http://your-site.ru/listings/abc"}, v)
}

func TestPlace_StoreErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := mocks.NewMockListingStore(ctrl)
	placer := newPlacer(store)

	store.EXPECT().FindSimilar(gomock.Any(), gomock.Any()).Return("", false, errors.New("connection refused"))
	v := placer.Place(context.Background(), newListing("1", nil))
	assert.Equal(t, domain.Failed{Error: "connection refused"}, v)

	store.EXPECT().FindSimilar(gomock.Any(), gomock.Any()).Return("", false, nil)
	store.EXPECT().SaveListing(gomock.Any(), gomock.Any()).Return(domain.StoredListing{}, errors.New("disk full"))
	v = placer.Place(context.Background(), newListing("2", nil))
	assert.Equal(t, domain.Failed{Error: "disk full"}, v)
}

func TestHandle_RepliesAsync(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := mocks.NewMockListingStore(ctrl)
	store.EXPECT().FindSimilar(gomock.Any(), gomock.Any()).Return("x", true, nil)

	replies := make(chan any, 1)
	newPlacer(store).Handle(context.Background(), newListing("1", nil), func(data any) {
		replies <- data
	})

	select {
	case got := <-replies:
		assert.Equal(t, domain.Duplicate{SimilarURL: "http://your-site.ru/listings/x"}, got)
	case <-time.After(time.Second):
		t.Fatal("no reply")
	}
}

func TestFingerprint(t *testing.T) {
	a := newListing("1", map[string]string{"type": "flat", "price": "100"})
	b := newListing("2", map[string]string{"price": "100", "type": " FLAT "})
	c := newListing("3", map[string]string{"type": "flat", "price": "200"})
	d := newListing("4", map[string]string{"type": "flat", "price": "100", "last-update-date": "2026-10-01"})

	require.Equal(t, Fingerprint(a.Element), Fingerprint(b.Element), "id and formatting must not matter")
	assert.NotEqual(t, Fingerprint(a.Element), Fingerprint(c.Element))
	assert.Equal(t, Fingerprint(a.Element), Fingerprint(d.Element), "volatile dates are ignored")
}
