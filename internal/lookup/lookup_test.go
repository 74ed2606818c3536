package lookup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspectbot/internal/models"
	"inspectbot/internal/testutil"
)

var (
	itemScope  = Scope{Function: models.FunctionItems, Domain: models.DomainFood}
	cycleScope = Scope{Function: models.FunctionCycles, Domain: models.DomainFood, BusinessType: models.BusinessFoodManufacturing}
)

func TestFind_Cardinality(t *testing.T) {
	store := testutil.TestStore(t)
	testutil.CreateTestItems(t, store, models.DomainFood, "소시지", "어육소시지", "혼합소시지", "음료", "탄산음료")

	svc := NewService(store, ModeFirst)
	ctx := context.Background()

	tests := []struct {
		name        string
		query       string
		cardinality Cardinality
		labels      []string
		record      string
	}{
		{"zero", "없는음식", None, nil, ""},
		{"one by substring", "어육", One, []string{"어육소시지"}, "어육소시지"},
		{"many", "소", Many, []string{"소시지", "어육소시지", "혼합소시지"}, ""},
		{"exact label wins over longer labels", "음료", One, []string{"음료", "탄산음료"}, "음료"},
		{"surrounding whitespace ignored", "  어육 ", One, []string{"어육소시지"}, "어육소시지"},
		{"empty query", "   ", None, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Find(ctx, itemScope, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.cardinality, res.Cardinality)
			assert.Equal(t, tt.labels, res.Labels)
			if tt.record == "" {
				assert.Nil(t, res.Record)
				return
			}
			require.NotNil(t, res.Record)
			assert.Equal(t, tt.record, res.Record.FoodType)
		})
	}
}

func TestFind_DuplicateLabelsCollapse(t *testing.T) {
	store := testutil.TestStore(t)
	ctx := context.Background()
	require.NoError(t, store.InsertItem(ctx, models.DomainFood, "과자", "산가 (old)"))
	require.NoError(t, store.InsertItem(ctx, models.DomainFood, "과자", "산가, 과산화물가"))

	res, err := NewService(store, ModeFirst).Find(ctx, itemScope, "과")
	require.NoError(t, err)
	assert.Equal(t, One, res.Cardinality)
	require.NotNil(t, res.Record)
	assert.Equal(t, "산가, 과산화물가", res.Record.Detail, "latest insert wins")
}

func TestFind_Cycles(t *testing.T) {
	store := testutil.TestStore(t)
	ctx := context.Background()
	require.NoError(t, store.InsertCycle(ctx, models.DomainFood, models.BusinessFoodManufacturing, "과자류", "과자", "6개월 1회"))
	require.NoError(t, store.InsertCycle(ctx, models.DomainFood, models.BusinessFoodInstantSale, "과자류", "과자", "9개월 1회"))

	res, err := NewService(store, ModeFirst).Find(ctx, cycleScope, "과자")
	require.NoError(t, err)
	require.Equal(t, One, res.Cardinality)
	assert.Equal(t, Record{FoodType: "과자", FoodGroup: "과자류", Detail: "6개월 1회"}, *res.Record)
}

func TestFind_InvalidScope(t *testing.T) {
	store := testutil.TestStore(t)
	svc := NewService(store, ModeFirst)

	scopes := []Scope{
		{},
		{Function: models.FunctionItems},
		{Function: models.FunctionCycles, Domain: models.DomainFood},
		{Function: models.FunctionCycles, Domain: models.DomainFood, BusinessType: models.BusinessLivestockManufacturing},
	}
	for _, scope := range scopes {
		_, err := svc.Find(context.Background(), scope, "과자")
		assert.ErrorIs(t, err, ErrInvalidScope, "scope %+v", scope)
	}
}

type failingStore struct{ err error }

func (f failingStore) QueryItems(context.Context, models.Domain, string) ([]models.InspectionItem, error) {
	return nil, f.err
}

func (f failingStore) QueryCycles(context.Context, models.Domain, models.BusinessType, string) ([]models.InspectionCycle, error) {
	return nil, f.err
}

func TestFind_StoreError(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewService(failingStore{err: boom}, ModeFirst)

	_, err := svc.Find(context.Background(), itemScope, "과자")
	assert.ErrorIs(t, err, boom)

	_, err = svc.Similar(context.Background(), itemScope, "과자")
	assert.ErrorIs(t, err, boom)
}

func TestCardinality_String(t *testing.T) {
	assert.Equal(t, models.OutcomeNone, None.String())
	assert.Equal(t, models.OutcomeSingle, One.String())
	assert.Equal(t, models.OutcomeMultiple, Many.String())
}
