package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemStackValueIsWriteOnce(t *testing.T) {
	stack := NewItemStack(4151, 1)
	assert.Equal(t, int32(ValueUnset), stack.Value)

	stack.SetValue(1_200_000)
	stack.SetValue(900_000) // historical price must not be refreshed
	assert.Equal(t, int32(1_200_000), stack.Value)

	stack.OverrideValue(900_000)
	assert.Equal(t, int32(900_000), stack.Value)
}

func TestItemStackNotedLink(t *testing.T) {
	stack := NewItemStack(4152, 5)
	assert.False(t, stack.IsNoted())
	assert.Equal(t, 4152, stack.CanonicalID())

	stack.SetUnnotedID(4151)
	assert.True(t, stack.IsNoted())
	assert.Equal(t, 4151, stack.CanonicalID())

	// A linked stack keeps its original link.
	stack.SetUnnotedID(9999)
	assert.Equal(t, 4151, stack.CanonicalID())
}

func TestItemHelpers(t *testing.T) {
	coins := NewItemStack(ItemIDCoins, 1000)
	platinum := NewItemStack(ItemIDPlatinum, 5)
	lobster := NewItemStack(379, 20)
	moreLobster := NewItemStack(379, 30)

	t.Run("TotalQuantity", func(t *testing.T) {
		items := []*ItemStack{lobster, coins, moreLobster}
		assert.Equal(t, int64(50), TotalQuantity(items, 379))
		assert.Equal(t, int64(1000), TotalQuantity(items, ItemIDCoins))
		assert.Equal(t, int64(0), TotalQuantity(items, 4151))
	})

	t.Run("IsOnlyCurrency", func(t *testing.T) {
		assert.True(t, IsOnlyCurrency([]*ItemStack{coins, platinum}))
		assert.False(t, IsOnlyCurrency([]*ItemStack{coins, lobster}))
		assert.False(t, IsOnlyCurrency(nil)) // empty offers are not currency
	})

	t.Run("HasSingleItemType", func(t *testing.T) {
		assert.True(t, HasSingleItemType([]*ItemStack{lobster, moreLobster}))
		assert.False(t, HasSingleItemType([]*ItemStack{lobster, coins}))
		assert.False(t, HasSingleItemType(nil))
	})

	t.Run("TotalValue", func(t *testing.T) {
		a := NewItemStack(379, 10)
		a.SetValue(150)
		b := NewItemStack(380, 2)
		b.SetValue(30)
		assert.Equal(t, int64(1560), TotalValue([]*ItemStack{a, b}))
	})

	t.Run("ItemCounts", func(t *testing.T) {
		counts := ItemCounts([]*ItemStack{lobster, moreLobster, coins})
		assert.Equal(t, map[int]int64{379: 50, ItemIDCoins: 1000}, counts)
	})
}
