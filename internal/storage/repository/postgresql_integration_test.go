package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildyoursmartcart/smartcart/internal/lib/period"
	"github.com/buildyoursmartcart/smartcart/internal/models"
)

func TestStorage_ConsumeUnit(t *testing.T) {
	type args struct {
		ctx     context.Context
		feature models.FeatureKind
	}

	periodStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		args        args
		wantOK      bool
		wantUsed    int
		wantErr     bool
		setup       func(t *testing.T, factory *TestDataFactory) string
	}{
		{
			name: "successful consume with remaining quota",
			args: args{
				ctx:     context.Background(),
				feature: models.FeatureIndividualRecipe,
			},
			wantOK:   true,
			wantUsed: 4,
			wantErr:  false,
			setup: func(t *testing.T, factory *TestDataFactory) string {
				userUID := uuid.New().String()
				factory.CreateUser(t, userUID, "testuser", "test@example.com", "hashedpassword", "user")
				factory.CreateCounter(t, userUID, "individual_recipe", 3, 10, periodStart)
				return userUID
			},
		},
		{
			name: "consume rejected at exhausted limit",
			args: args{
				ctx:     context.Background(),
				feature: models.FeatureIndividualRecipe,
			},
			wantOK:   false,
			wantUsed: 0,
			wantErr:  false,
			setup: func(t *testing.T, factory *TestDataFactory) string {
				userUID := uuid.New().String()
				factory.CreateUser(t, userUID, "testuser", "test@example.com", "hashedpassword", "user")
				factory.CreateCounter(t, userUID, "individual_recipe", 10, 10, periodStart)
				return userUID
			},
		},
		{
			name: "consume for missing counter",
			args: args{
				ctx:     context.Background(),
				feature: models.FeatureWeeklyPlan,
			},
			wantOK:   false,
			wantUsed: 0,
			wantErr:  false,
			setup: func(t *testing.T, factory *TestDataFactory) string {
				userUID := uuid.New().String()
				factory.CreateUser(t, userUID, "testuser", "test@example.com", "hashedpassword", "user")
				return userUID
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			userUID := tt.setup(t, factory)

			gotOK, gotUsed, err := storage.ConsumeUnit(tt.args.ctx, userUID, tt.args.feature)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, gotOK)
			assert.Equal(t, tt.wantUsed, gotUsed)
		})
	}
}

// Проверяет, что при конкурирующих списаниях через последнюю единицу квоты
// проходит ровно столько запросов, сколько единиц осталось.
func TestStorage_ConsumeUnit_Concurrent(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	periodStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	factory := NewTestDataFactory(storage)
	userUID := uuid.New().String()
	factory.CreateUser(t, userUID, "testuser", "test@example.com", "hashedpassword", "user")

	// Лимит 5, израсходовано 2: осталось ровно 3 единицы
	factory.CreateCounter(t, userUID, "specialty_drink", 2, 5, periodStart)

	const workers = 20
	var wg sync.WaitGroup
	results := make([]bool, workers)

	for i := range workers {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			ok, _, err := storage.ConsumeUnit(context.Background(), userUID, models.FeatureSpecialtyDrink)
			assert.NoError(t, err)
			results[idx] = ok
		}(i)
	}
	wg.Wait()

	var consumed int
	for _, ok := range results {
		if ok {
			consumed++
		}
	}
	assert.Equal(t, 3, consumed)

	verification := NewTestVerification(storage)
	verification.VerifyCounterState(t, userUID, "specialty_drink", 5, 5)
}

func TestStorage_ResetCounterIfRolled(t *testing.T) {
	tests := []struct {
		name        string
		periodStart time.Time
		boundary    time.Time
		wantReset   bool
		wantUsed    int
	}{
		{
			name:        "reset counter after full month elapsed",
			periodStart: time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC),
			boundary:    time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
			wantReset:   true,
			wantUsed:    0,
		},
		{
			// Внутри текущего периода граница совпадает с сохранённым
			// началом, строка не меняется.
			name:        "no reset inside current period",
			periodStart: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			boundary:    time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			wantReset:   false,
			wantUsed:    7,
		},
		{
			// Начало периода в конце месяца: граница нормализуется
			// шагами AddDate (31 января -> 3 марта -> ... -> 3 августа),
			// и обе стороны сравнивают одни и те же даты.
			name:        "month-end period start uses stepped boundary",
			periodStart: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
			boundary: period.CurrentBoundary(
				time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
				time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)),
			wantReset: true,
			wantUsed:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			userUID := uuid.New().String()
			factory.CreateUser(t, userUID, "testuser", "test@example.com", "hashedpassword", "user")
			factory.CreateCounter(t, userUID, "weekly_plan", 7, 10, tt.periodStart)

			gotReset, err := storage.ResetCounterIfRolled(context.Background(),
				userUID, models.FeatureWeeklyPlan, tt.boundary)

			require.NoError(t, err)
			assert.Equal(t, tt.wantReset, gotReset)

			verification := NewTestVerification(storage)
			verification.VerifyCounterState(t, userUID, "weekly_plan", tt.wantUsed, 10)
		})
	}
}

func TestStorage_EnsureCounter(t *testing.T) {
	periodStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		limit     int
		wantUsed  int
		wantLimit int
		setup     func(t *testing.T, factory *TestDataFactory, userUID string)
	}{
		{
			name:      "creates missing counter with zero used",
			limit:     10,
			wantUsed:  0,
			wantLimit: 10,
			setup:     func(_ *testing.T, _ *TestDataFactory, _ string) {},
		},
		{
			name:      "updates limit on tier change without touching used",
			limit:     200,
			wantUsed:  6,
			wantLimit: 200,
			setup: func(t *testing.T, factory *TestDataFactory, userUID string) {
				factory.CreateCounter(t, userUID, "individual_recipe", 6, 10, periodStart)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			userUID := uuid.New().String()
			factory.CreateUser(t, userUID, "testuser", "test@example.com", "hashedpassword", "user")
			tt.setup(t, factory, userUID)

			err := storage.EnsureCounter(context.Background(), userUID,
				models.FeatureIndividualRecipe, tt.limit, periodStart)

			require.NoError(t, err)

			verification := NewTestVerification(storage)
			verification.VerifyCounterState(t, userUID, "individual_recipe", tt.wantUsed, tt.wantLimit)
		})
	}
}

func TestStorage_ListCounters(t *testing.T) {
	periodStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		wantCount int
		setup     func(t *testing.T, factory *TestDataFactory, userUID string)
	}{
		{
			name:      "successful list all counters",
			wantCount: 3,
			setup: func(t *testing.T, factory *TestDataFactory, userUID string) {
				factory.CreateCounter(t, userUID, "individual_recipe", 3, 10, periodStart)
				factory.CreateCounter(t, userUID, "weekly_plan", 1, 2, periodStart)
				factory.CreateCounter(t, userUID, "specialty_drink", 0, 5, periodStart)
			},
		},
		{
			name:      "list counters for user without counters",
			wantCount: 0,
			setup:     func(_ *testing.T, _ *TestDataFactory, _ string) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			userUID := uuid.New().String()
			factory.CreateUser(t, userUID, "testuser", "test@example.com", "hashedpassword", "user")
			tt.setup(t, factory, userUID)

			got, err := storage.ListCounters(context.Background(), userUID)

			require.NoError(t, err)
			assert.Len(t, got, tt.wantCount)
		})
	}
}

func TestStorage_GetUser(t *testing.T) {
	type args struct {
		ctx     context.Context
		userUID string
	}

	trialEndDate := time.Now().AddDate(0, 0, 7)       // 7 дней от сегодня
	subscriptionExpiry := time.Now().AddDate(0, 1, 0) // 1 месяц от сегодня

	tests := []struct {
		name    string
		args    args
		want    *models.User
		wantErr bool
		setup   func(t *testing.T, factory *TestDataFactory) string
	}{
		{
			name: "successful get user by UID",
			args: args{
				ctx:     context.Background(),
				userUID: "", // будет установлен в setup
			},
			want: &models.User{
				Email:              "test@example.com",
				Username:           "testuser",
				PasswordHash:       "hashedpassword",
				Role:               "user",
				TrialEndDate:       &trialEndDate,
				SubscriptionStatus: models.SubscriptionTrialing,
				SubscriptionExpiry: &subscriptionExpiry,
			},
			wantErr: false,
			setup: func(t *testing.T, factory *TestDataFactory) string {
				userUID := uuid.New().String()
				factory.CreateUserWithSubscription(t, userUID, "testuser", "test@example.com", "hashedpassword", "user",
					trialEndDate, subscriptionExpiry, "trialing")
				return userUID
			},
		},
		{
			name: "get non-existing user by UID",
			args: args{
				ctx:     context.Background(),
				userUID: "non-existing-uid",
			},
			want:    nil,
			wantErr: true,
			setup: func(_ *testing.T, _ *TestDataFactory) string {
				return uuid.New().String()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			userUID := tt.setup(t, factory)
			tt.args.userUID = userUID
			if tt.want != nil {
				tt.want.UUID = userUID
			}

			got, err := storage.GetUser(tt.args.ctx, tt.args.userUID)

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, tt.want.UUID, got.UUID)
				assert.Equal(t, tt.want.Email, got.Email)
				assert.Equal(t, tt.want.Username, got.Username)
				assert.Equal(t, tt.want.PasswordHash, got.PasswordHash)
				assert.Equal(t, tt.want.Role, got.Role)
				assert.Equal(t, tt.want.SubscriptionStatus, got.SubscriptionStatus)
			}
		})
	}
}

func TestStorage_RegisterUser(t *testing.T) {
	type args struct {
		ctx  context.Context
		user models.User
	}

	tests := []struct {
		name    string
		args    args
		wantErr bool
		setup   func(t *testing.T, factory *TestDataFactory)
	}{
		{
			name: "successful register user with lowercased email",
			args: args{
				ctx: context.Background(),
				user: models.User{
					Email:              "Test@Example.COM",
					Username:           "testuser",
					PasswordHash:       "hashedpassword",
					Role:               "user",
					SubscriptionStatus: models.SubscriptionTrialing,
				},
			},
			wantErr: false,
			setup:   func(_ *testing.T, _ *TestDataFactory) {},
		},
		{
			name: "register user with duplicate username",
			args: args{
				ctx: context.Background(),
				user: models.User{
					Email:              "test2@example.com",
					Username:           "testuser", // duplicate username
					PasswordHash:       "hashedpassword2",
					Role:               "user",
					SubscriptionStatus: models.SubscriptionTrialing,
				},
			},
			wantErr: true,
			setup: func(t *testing.T, factory *TestDataFactory) {
				userUID := uuid.New().String()
				factory.CreateUser(t, userUID, "testuser", "test@example.com", "hashedpassword", "user")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			tt.setup(t, factory)

			gotUID, err := storage.RegisterUser(tt.args.ctx, tt.args.user)

			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, gotUID)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, gotUID)

			// Проверяем, что пользователь создан и почта приведена к нижнему регистру
			verification := NewTestVerification(storage)
			verification.VerifyUserExists(t, gotUID)

			var email string
			err = storage.DB.QueryRow("SELECT email FROM users WHERE uid = $1", gotUID).Scan(&email)
			require.NoError(t, err)
			assert.Equal(t, "test@example.com", email)
		})
	}
}

func TestStorage_FindLapsedUsers(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		wantCount int
		setup     func(t *testing.T, factory *TestDataFactory)
	}{
		{
			name:      "finds trial ended and billing lapsed users",
			wantCount: 2,
			setup: func(t *testing.T, factory *TestDataFactory) {
				// Пробный период истёк вчера
				factory.CreateUserWithSubscription(t, uuid.New().String(), "trialuser", "trial@example.com",
					"hashedpassword", "user", now.AddDate(0, 0, -1), now.AddDate(0, 1, 0), "trialing")
				// Оплаченная подписка истекла неделю назад
				factory.CreateUserWithSubscription(t, uuid.New().String(), "lapseduser", "lapsed@example.com",
					"hashedpassword", "user", now.AddDate(0, -1, 0), now.AddDate(0, 0, -7), "active")
				// Активный пользователь в выборку не попадает
				factory.CreateUserWithSubscription(t, uuid.New().String(), "activeuser", "active@example.com",
					"hashedpassword", "user", now.AddDate(0, 0, -30), now.AddDate(0, 1, 0), "active")
			},
		},
		{
			name:      "no lapsed users",
			wantCount: 0,
			setup: func(t *testing.T, factory *TestDataFactory) {
				factory.CreateUserWithSubscription(t, uuid.New().String(), "activeuser", "active@example.com",
					"hashedpassword", "user", now.AddDate(0, 0, 7), now.AddDate(0, 1, 0), "trialing")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			tt.setup(t, factory)

			got, err := storage.FindLapsedUsers(context.Background(), now)

			require.NoError(t, err)
			assert.Len(t, got, tt.wantCount)
		})
	}
}

func TestStorage_CreateRecipe(t *testing.T) {
	type args struct {
		ctx    context.Context
		recipe models.Recipe
	}

	tests := []struct {
		name    string
		args    args
		wantID  int
		wantErr bool
	}{
		{
			name: "successful create recipe",
			args: args{
				ctx: context.Background(),
				recipe: models.Recipe{
					Title:            "Chicken Stir Fry",
					Source:           models.SourceIndividual,
					Ingredients:      []string{"2 lbs chicken breast, diced", "1 cup jasmine rice"},
					IngredientsClean: []string{"chicken breast", "jasmine rice"},
					Instructions:     []string{"Cook rice", "Stir fry chicken"},
					Nutrition:        models.Nutrition{Calories: 520, Protein: 45, Carbs: 50, Fat: 14},
					EstimatedCost:    16.40,
				},
			},
			wantID:  1,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			userUID := uuid.New().String()
			factory.CreateUser(t, userUID, "testuser", "test@example.com", "hashedpassword", "user")
			tt.args.recipe.UserUID = userUID

			gotID, err := storage.CreateRecipe(tt.args.ctx, tt.args.recipe)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, gotID)

			verification := NewTestVerification(storage)
			verification.VerifyRecipeExists(t, gotID)

			got, err := storage.ReadRecipe(tt.args.ctx, gotID)
			require.NoError(t, err)
			assert.Equal(t, tt.args.recipe.Title, got.Title)
			assert.Equal(t, tt.args.recipe.Ingredients, got.Ingredients)
			assert.Equal(t, tt.args.recipe.IngredientsClean, got.IngredientsClean)
			assert.Equal(t, tt.args.recipe.Nutrition, got.Nutrition)
		})
	}
}

func TestStorage_UpdateCleanIngredients(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	userUID := uuid.New().String()
	factory.CreateUser(t, userUID, "testuser", "test@example.com", "hashedpassword", "user")
	recipeID := factory.CreateRecipe(t, userUID, "Pasta", "individual", `["1 lb spaghetti", "2 cups marinara sauce"]`)

	err := storage.UpdateCleanIngredients(context.Background(), recipeID, []string{"spaghetti", "marinara sauce"})
	require.NoError(t, err)

	got, err := storage.ReadRecipe(context.Background(), recipeID)
	require.NoError(t, err)
	assert.Equal(t, []string{"spaghetti", "marinara sauce"}, got.IngredientsClean)
}

func TestStorage_ListRecipes(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		offset    int
		wantCount int
		setup     func(t *testing.T, factory *TestDataFactory, userUID string)
	}{
		{
			name:      "successful list recipes with pagination",
			limit:     10,
			offset:    0,
			wantCount: 2,
			setup: func(t *testing.T, factory *TestDataFactory, userUID string) {
				factory.CreateRecipe(t, userUID, "Pasta", "individual", `["1 lb spaghetti"]`)
				factory.CreateRecipe(t, userUID, "Latte", "drink", `["2 shots espresso", "1 cup milk"]`)
			},
		},
		{
			name:      "list recipes for user without recipes",
			limit:     10,
			offset:    0,
			wantCount: 0,
			setup:     func(_ *testing.T, _ *TestDataFactory, _ string) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			userUID := uuid.New().String()
			factory.CreateUser(t, userUID, "testuser", "test@example.com", "hashedpassword", "user")
			tt.setup(t, factory, userUID)

			got, err := storage.ListRecipes(context.Background(), userUID, tt.limit, tt.offset)

			require.NoError(t, err)
			assert.Len(t, got, tt.wantCount)
		})
	}
}

func TestCheckDatabaseReady(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(t *testing.T, storage *Storage)
		wantError    bool
		errorContain string
	}{
		{
			name: "table exists",
			setup: func(_ *testing.T, _ *Storage) {
				// Таблица уже создается в setupTestDatabase
			},
			wantError: false,
		},
		{
			name: "table missing",
			setup: func(t *testing.T, storage *Storage) {
				_, err := storage.DB.Exec(`DROP TABLE IF EXISTS recipes CASCADE`)
				require.NoError(t, err)
				_, err = storage.DB.Exec(`DROP TABLE IF EXISTS usage_counters CASCADE`)
				require.NoError(t, err)
				_, err = storage.DB.Exec(`DROP TABLE IF EXISTS users CASCADE`)
				require.NoError(t, err)
			},
			wantError:    true,
			errorContain: "missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()
			tt.setup(t, storage)

			err := CheckDatabaseReady(storage)
			if tt.wantError {
				require.Error(t, err)
				if tt.errorContain != "" {
					assert.Contains(t, err.Error(), tt.errorContain)
				}
			} else {
				require.NoError(t, err)
			}
		})
	}
}
