package dedup

import (
	"testing"

	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeFillsMissingFields(t *testing.T) {
	base := &models.Product{
		ShopsItemID: "https://shop.test/p/1",
		Title:       models.LocalizedText{Text: "Medal Set", Language: models.UnknownLanguage},
		Description: models.LocalizedText{Language: models.UnknownLanguage},
		Price:       models.Money{Currency: models.UnknownCurrency},
		State:       models.StateUnknown,
		URL:         "https://shop.test/p/1",
		Images:      []string{"a.jpg"},
	}
	other := &models.Product{
		ShopsItemID: "A1023",
		ShopName:    "Medals Inc",
		Title:       models.LocalizedText{Text: "Medal Set (1940s)", Language: "de"},
		Description: models.LocalizedText{Text: "Bronze", Language: "de"},
		Price:       models.Money{Currency: "EUR", Amount: 27500},
		State:       models.StateAvailable,
		URL:         "https://shop.test/p/1",
		Images:      []string{"a.jpg", "b.jpg"},
	}

	merged := Merge(base, other)

	assert.Equal(t, "Medal Set", merged.Title.Text)
	assert.Equal(t, "de", merged.Title.Language)
	assert.Equal(t, models.LocalizedText{Text: "Bronze", Language: "de"}, merged.Description)
	assert.Equal(t, models.Money{Currency: "EUR", Amount: 27500}, merged.Price)
	assert.Equal(t, models.StateAvailable, merged.State)
	assert.Equal(t, "A1023", merged.ShopsItemID)
	assert.Equal(t, "Medals Inc", merged.ShopName)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, merged.Images)

	// base is untouched
	assert.Equal(t, []string{"a.jpg"}, base.Images)
	assert.Equal(t, models.StateUnknown, base.State)
}

func TestMergeKeepsExistingValues(t *testing.T) {
	base := &models.Product{
		ShopsItemID: "SKU-1",
		Price:       models.Money{Currency: "USD", Amount: 100},
		State:       models.StateSold,
	}
	other := &models.Product{
		ShopsItemID: "SKU-2",
		Price:       models.Money{Currency: "EUR", Amount: 900},
		State:       models.StateAvailable,
	}

	merged := Merge(base, other)
	assert.Equal(t, "SKU-1", merged.ShopsItemID)
	assert.Equal(t, models.Money{Currency: "USD", Amount: 100}, merged.Price)
	assert.Equal(t, models.StateSold, merged.State)
	assert.NotNil(t, merged.Images)
}

func TestSameProduct(t *testing.T) {
	a := &models.Product{Title: models.LocalizedText{Text: "Lamp"}, URL: "https://a.test/1"}
	b := &models.Product{Title: models.LocalizedText{Text: " lamp "}, URL: "https://b.test/2"}
	c := &models.Product{Title: models.LocalizedText{Text: "Chair"}, URL: "https://a.test/1"}
	d := &models.Product{Title: models.LocalizedText{Text: "Desk"}}

	assert.True(t, SameProduct(a, b))
	assert.True(t, SameProduct(a, c))
	assert.False(t, SameProduct(b, d))
	assert.False(t, SameProduct(&models.Product{}, &models.Product{}))
	assert.False(t, SameProduct(a, nil))
}

func TestMergeLists(t *testing.T) {
	base := []*models.Product{
		{Title: models.LocalizedText{Text: "Lamp"}, Images: []string{"1.jpg"}},
	}
	others := []*models.Product{
		{Title: models.LocalizedText{Text: "lamp"}, Images: []string{"2.jpg"}},
		{Title: models.LocalizedText{Text: "Chair"}},
		nil,
	}

	out := MergeLists(base, others)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"1.jpg", "2.jpg"}, out[0].Images)
	assert.Equal(t, "Chair", out[1].Title.Text)
	assert.Equal(t, []string{"1.jpg"}, base[0].Images)
}
