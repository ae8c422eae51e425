package service

import (
	"context"
	"strings"
	"testing"

	"github.com/bigkaa/mediastore/sync-module/internal/lcclient"
)

// TestVocabSync_FullDiff проверяет полную сверку: {A,B,C} в DAM,
// {B,C,D} в LC → создать D, удалить A, B и C не трогать.
func TestVocabSync_FullDiff(t *testing.T) {
	stack := newTestStack(t)

	labels := func(en string) map[string]string { return map[string]string{"en": en} }

	stack.dam.seedListItem("usage", "A", labels("A"))
	stack.dam.seedListItem("usage", "B", labels("B"))
	stack.dam.seedListItem("usage", "C", labels("C"))

	stack.lc.vocab["usage"] = []lcclient.VocabularyElement{
		{Key: "B", Labels: labels("B")},
		{Key: "C", Labels: labels("C")},
		{Key: "D", Labels: labels("D")},
	}

	result, err := stack.vocab.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Ошибка Reconcile: %v", err)
	}

	if result.Created != 1 {
		t.Errorf("Created = %d, ожидается 1", result.Created)
	}
	if result.Updated != 0 {
		t.Errorf("Updated = %d, ожидается 0", result.Updated)
	}
	if result.Deleted != 1 {
		t.Errorf("Deleted = %d, ожидается 1", result.Deleted)
	}

	// Итоговое состояние справочника — ровно {B,C,D}
	stack.dam.mu.Lock()
	keys := map[string]bool{}
	for _, item := range stack.dam.listItems {
		keys[item.Key] = true
	}
	stack.dam.mu.Unlock()

	for _, want := range []string{"B", "C", "D"} {
		if !keys[want] {
			t.Errorf("элемент %s отсутствует после сверки", want)
		}
	}
	if keys["A"] {
		t.Error("элемент A не удалён")
	}
}

// TestVocabSync_LabelsUpdated проверяет обновление изменившихся подписей.
func TestVocabSync_LabelsUpdated(t *testing.T) {
	stack := newTestStack(t)

	id := stack.dam.seedListItem("geography", "europe", map[string]string{"en": "Europe"})

	stack.lc.vocab["geography"] = []lcclient.VocabularyElement{
		{Key: "europe", Labels: map[string]string{"en": "Europe", "de": "Europa"}},
	}

	result, err := stack.vocab.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Ошибка Reconcile: %v", err)
	}

	if result.Updated != 1 {
		t.Errorf("Updated = %d, ожидается 1", result.Updated)
	}

	stack.dam.mu.Lock()
	item := stack.dam.listItems[id]
	stack.dam.mu.Unlock()
	if item.Labels["de"] != "Europa" {
		t.Errorf("подпись de = %q, ожидается Europa", item.Labels["de"])
	}
}

// TestVocabSync_CreatesBeforeDeletes проверяет порядок операций:
// создания и обновления до удалений.
func TestVocabSync_CreatesBeforeDeletes(t *testing.T) {
	stack := newTestStack(t)

	stack.dam.seedListItem("usage", "old", map[string]string{"en": "Old"})
	stack.lc.vocab["usage"] = []lcclient.VocabularyElement{
		{Key: "new", Labels: map[string]string{"en": "New"}},
	}

	if _, err := stack.vocab.Reconcile(context.Background()); err != nil {
		t.Fatalf("Ошибка Reconcile: %v", err)
	}

	stack.dam.mu.Lock()
	opLog := append([]string(nil), stack.dam.opLog...)
	stack.dam.mu.Unlock()

	createIdx, deleteIdx := -1, -1
	for i, op := range opLog {
		if strings.HasPrefix(op, "create:") {
			createIdx = i
		}
		if strings.HasPrefix(op, "delete:") {
			deleteIdx = i
		}
	}
	if createIdx == -1 || deleteIdx == -1 {
		t.Fatalf("в журнале нет create/delete: %v", opLog)
	}
	if createIdx > deleteIdx {
		t.Errorf("создание после удаления: %v", opLog)
	}
}

// TestVocabSync_MissingKindUntouched проверяет, что вид, отсутствующий
// в снапшоте LC, не трогается.
func TestVocabSync_MissingKindUntouched(t *testing.T) {
	stack := newTestStack(t)

	stack.dam.seedListItem("language", "en", map[string]string{"en": "English"})
	// Снапшот LC вообще без вида language
	stack.lc.vocab["usage"] = []lcclient.VocabularyElement{
		{Key: "web", Labels: map[string]string{"en": "Web"}},
	}

	if _, err := stack.vocab.Reconcile(context.Background()); err != nil {
		t.Fatalf("Ошибка Reconcile: %v", err)
	}

	stack.dam.mu.Lock()
	defer stack.dam.mu.Unlock()
	found := false
	for _, item := range stack.dam.listItems {
		if item.Kind == "language" && item.Key == "en" {
			found = true
		}
	}
	if !found {
		t.Error("элемент отсутствующего в снапшоте вида удалён")
	}
}

// TestVocabSync_PurgesResolverCache проверяет сброс кэша резолвера
// после сверки.
func TestVocabSync_PurgesResolverCache(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	stack.dam.seedListItem("usage", "web", map[string]string{"en": "Web"})

	// Прогреваем кэш
	if id, err := stack.resolver.ResolveKey(ctx, "usage", "web"); err != nil || id == "" {
		t.Fatalf("ResolveKey(web) = %q, %v, ожидался непустой ID", id, err)
	}
	// Ключ print ещё не существует
	if id, _ := stack.resolver.ResolveKey(ctx, "usage", "print"); id != "" {
		t.Fatalf("неизвестный ключ print резолвится в %q", id)
	}

	// LC добавляет print; после Reconcile ключ должен резолвиться
	stack.lc.vocab["usage"] = []lcclient.VocabularyElement{
		{Key: "web", Labels: map[string]string{"en": "Web"}},
		{Key: "print", Labels: map[string]string{"en": "Print"}},
	}
	if _, err := stack.vocab.Reconcile(ctx); err != nil {
		t.Fatalf("Ошибка Reconcile: %v", err)
	}

	if id, err := stack.resolver.ResolveKey(ctx, "usage", "print"); err != nil || id == "" {
		t.Errorf("ключ print не резолвится после сверки: %q, %v", id, err)
	}
}
