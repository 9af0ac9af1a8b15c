package cache

import (
	"testing"
	"time"
)

func TestLRUEngineNew(t *testing.T) {
	engine, err := NewLRUEngine(100, 0)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	if engine.Kind() != EngineLRU {
		t.Fatalf("Expected kind %q, got %q", EngineLRU, engine.Kind())
	}
}

func TestLRUEngineNewWithZeroCapacity(t *testing.T) {
	_, err := NewLRUEngine(0, 0)
	if err == nil {
		t.Fatal("Expected error when creating engine with capacity 0")
	}
}

func TestLRUEngineNewWithNegativeCapacity(t *testing.T) {
	_, err := NewLRUEngine(-1, 0)
	if err == nil {
		t.Fatal("Expected error when creating engine with negative capacity")
	}
}

func TestLRUEngineSetGet(t *testing.T) {
	engine, err := NewLRUEngine(100, 0)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	engine.Set("key1", "value1", 0)

	value, found := engine.Get("key1")
	if !found {
		t.Fatal("Value should be found")
	}
	if value != "value1" {
		t.Fatalf("Expected 'value1', got %v", value)
	}
}

func TestLRUEngineGetNotFound(t *testing.T) {
	engine, err := NewLRUEngine(100, 0)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	_, found := engine.Get("nonexistent")
	if found {
		t.Fatal("Value should not be found")
	}
}

func TestLRUEngineGetAfterUpdate(t *testing.T) {
	engine, err := NewLRUEngine(100, 0)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	engine.Set("key1", "value1", 0)
	engine.Set("key1", "value2", 0) // Update

	value, found := engine.Get("key1")
	if !found {
		t.Fatal("Value should be found")
	}
	if value != "value2" {
		t.Fatalf("Expected 'value2', got %v", value)
	}
}

func TestLRUEngineDelete(t *testing.T) {
	engine, err := NewLRUEngine(100, 0)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	engine.Set("key1", "value1", 0)
	engine.Delete("key1")

	_, found := engine.Get("key1")
	if found {
		t.Fatal("Value should not be found after deletion")
	}
}

func TestLRUEngineDeleteNonexistent(t *testing.T) {
	engine, err := NewLRUEngine(100, 0)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	// Should not panic
	engine.Delete("nonexistent")
}

func TestLRUEngineCapacityEviction(t *testing.T) {
	engine, err := NewLRUEngine(3, 0)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	engine.Set("a", 1, 0)
	engine.Set("b", 2, 0)
	engine.Set("c", 3, 0)
	engine.Set("d", 4, 0) // Evicts "a"

	if _, found := engine.Get("a"); found {
		t.Fatal("Least recently used key should have been evicted")
	}
	for _, key := range []string{"b", "c", "d"} {
		if _, found := engine.Get(key); !found {
			t.Fatalf("Key %q should still be present", key)
		}
	}
	if engine.Len() != 3 {
		t.Fatalf("Expected 3 entries, got %d", engine.Len())
	}
}

func TestLRUEngineGetRefreshesRecency(t *testing.T) {
	engine, err := NewLRUEngine(3, 0)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	engine.Set("a", 1, 0)
	engine.Set("b", 2, 0)
	engine.Set("c", 3, 0)

	engine.Get("a")       // "a" becomes most recently used
	engine.Set("d", 4, 0) // Evicts "b", the oldest untouched key

	if _, found := engine.Get("b"); found {
		t.Fatal("Key 'b' should have been evicted")
	}
	if _, found := engine.Get("a"); !found {
		t.Fatal("Key 'a' should have survived after being read")
	}
}

func TestLRUEngineContainsDoesNotRefreshRecency(t *testing.T) {
	engine, err := NewLRUEngine(3, 0)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	engine.Set("a", 1, 0)
	engine.Set("b", 2, 0)
	engine.Set("c", 3, 0)

	if !engine.Contains("a") {
		t.Fatal("Key 'a' should be present")
	}
	engine.Set("d", 4, 0) // "a" is still oldest and must be evicted

	if _, found := engine.Get("a"); found {
		t.Fatal("Contains should not have protected 'a' from eviction")
	}
}

func TestLRUEngineEvictionCounter(t *testing.T) {
	engine, err := NewLRUEngine(2, 0)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	engine.Set("a", 1, 0)
	engine.Set("b", 2, 0)
	if engine.Evictions() != 0 {
		t.Fatalf("Expected 0 evictions, got %d", engine.Evictions())
	}

	engine.Set("c", 3, 0)
	engine.Set("d", 4, 0)
	if engine.Evictions() != 2 {
		t.Fatalf("Expected 2 evictions, got %d", engine.Evictions())
	}

	// Updates and deletes are not evictions.
	engine.Set("d", 5, 0)
	engine.Delete("c")
	if engine.Evictions() != 2 {
		t.Fatalf("Expected 2 evictions after update and delete, got %d", engine.Evictions())
	}
}

func TestLRUEngineTTLExpiry(t *testing.T) {
	engine, err := NewLRUEngine(100, 0)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	engine.Set("key1", "value1", 30*time.Millisecond)

	if _, found := engine.Get("key1"); !found {
		t.Fatal("Value should be found before expiry")
	}

	time.Sleep(50 * time.Millisecond)

	if _, found := engine.Get("key1"); found {
		t.Fatal("Value should have expired")
	}
}

func TestLRUEngineNoExpirationTTL(t *testing.T) {
	engine, err := NewLRUEngine(100, 0)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	engine.Set("key1", "value1", NoExpiration)

	time.Sleep(30 * time.Millisecond)

	if _, found := engine.Get("key1"); !found {
		t.Fatal("Value stored with NoExpiration should not expire")
	}
}

func TestLRUEngineTTIExpiry(t *testing.T) {
	engine, err := NewLRUEngine(100, 40*time.Millisecond)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	engine.Set("key1", "value1", 0)

	time.Sleep(60 * time.Millisecond)

	if _, found := engine.Get("key1"); found {
		t.Fatal("Idle value should have expired")
	}
}

func TestLRUEngineGetRefreshesIdleDeadline(t *testing.T) {
	engine, err := NewLRUEngine(100, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	engine.Set("key1", "value1", 0)

	// Keep reading inside the idle window; the entry must stay alive past
	// the original deadline.
	for i := 0; i < 4; i++ {
		time.Sleep(25 * time.Millisecond)
		if _, found := engine.Get("key1"); !found {
			t.Fatalf("Value should still be alive on read %d", i)
		}
	}
}

func TestLRUEngineContainsDoesNotRefreshIdleDeadline(t *testing.T) {
	engine, err := NewLRUEngine(100, 60*time.Millisecond)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	engine.Set("key1", "value1", 0)

	time.Sleep(40 * time.Millisecond)
	if !engine.Contains("key1") {
		t.Fatal("Value should still be alive")
	}

	// Contains must not have pushed the idle deadline forward.
	time.Sleep(40 * time.Millisecond)
	if _, found := engine.Get("key1"); found {
		t.Fatal("Idle value should have expired despite the Contains call")
	}
}

func TestLRUEnginePurge(t *testing.T) {
	engine, err := NewLRUEngine(100, 0)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	engine.Set("key1", "value1", 0)
	engine.Set("key2", "value2", 0)
	engine.Purge()

	if engine.Len() != 0 {
		t.Fatalf("Expected empty engine after purge, got %d entries", engine.Len())
	}
}

func TestLRUEngineKeys(t *testing.T) {
	engine, err := NewLRUEngine(100, 0)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	engine.Set("a", 1, 0)
	engine.Set("b", 2, 0)

	keys := engine.Keys()
	if len(keys) != 2 {
		t.Fatalf("Expected 2 keys, got %d", len(keys))
	}
}

func TestLRUEngineStoredNil(t *testing.T) {
	engine, err := NewLRUEngine(100, 0)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	engine.Set("key1", nil, 0)

	value, found := engine.Get("key1")
	if !found {
		t.Fatal("Stored nil should be a hit")
	}
	if value != nil {
		t.Fatalf("Expected nil, got %v", value)
	}
}

func TestLRUEngineFactory(t *testing.T) {
	factory := NewLRUEngineFactory(50, 0)

	engine, err := factory.Create()
	if err != nil {
		t.Fatalf("Failed to create engine from factory: %v", err)
	}
	defer engine.Close()

	engine.Set("test", "value", 0)
	value, found := engine.Get("test")
	if !found {
		t.Fatal("Value should be found")
	}
	if value != "value" {
		t.Fatalf("Expected 'value', got %v", value)
	}
}

func TestLRUEngineSetWithDifferentTypes(t *testing.T) {
	engine, err := NewLRUEngine(100, 0)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	engine.Set("key1", "string value", 0)
	if v, found := engine.Get("key1"); !found || v != "string value" {
		t.Fatal("String value should be stored and retrieved")
	}

	engine.Set("key2", 42, 0)
	if v, found := engine.Get("key2"); !found || v != 42 {
		t.Fatal("Int value should be stored and retrieved")
	}

	type testStruct struct {
		Name string
		Age  int
	}
	engine.Set("key3", testStruct{Name: "John", Age: 30}, 0)
	v, found := engine.Get("key3")
	if !found {
		t.Fatal("Struct value should be stored and retrieved")
	}
	s, ok := v.(testStruct)
	if !ok || s.Name != "John" || s.Age != 30 {
		t.Fatal("Struct value should match")
	}
}
