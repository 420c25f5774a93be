package repository

import "testing"

// TestPostgresFoodLogRepo_ImplementsInterface はPostgresFoodLogRepoがFoodLogRepositoryを実装することを検証する。
func TestPostgresFoodLogRepo_ImplementsInterface(t *testing.T) {
	// コンパイル時チェック：PostgresFoodLogRepoがFoodLogRepositoryを満たすことを検証
	var _ FoodLogRepository = (*PostgresFoodLogRepo)(nil)
}

// TestPostgresUserGoalRepo_ImplementsInterface はPostgresUserGoalRepoがUserGoalRepositoryを実装することを検証する。
func TestPostgresUserGoalRepo_ImplementsInterface(t *testing.T) {
	var _ UserGoalRepository = (*PostgresUserGoalRepo)(nil)
}

// TestPostgresCoachCacheRepo_ImplementsInterface はPostgresCoachCacheRepoがCoachCacheRepositoryを実装することを検証する。
func TestPostgresCoachCacheRepo_ImplementsInterface(t *testing.T) {
	var _ CoachCacheRepository = (*PostgresCoachCacheRepo)(nil)
}

func TestNullStringRoundTrip(t *testing.T) {
	if got := nullStringValue(nullString("")); got != "" {
		t.Errorf("空文字列の往復 = %q, want \"\"", got)
	}
	if got := nullStringValue(nullString("abc")); got != "abc" {
		t.Errorf("非空文字列の往復 = %q, want %q", got, "abc")
	}
	if nullString("").Valid {
		t.Error("空文字列はNULLとして書き込まれるべき")
	}
}
