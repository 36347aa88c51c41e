package storage

import "testing"

func TestMemDBRoundTrip(t *testing.T) {
	db := NewMemDB()
	if err := db.Put([]byte("key"), []byte("value")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := db.Get([]byte("key"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "value" {
		t.Fatalf("got %q, want %q", got, "value")
	}
	has, err := db.Has([]byte("key"))
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if !has {
		t.Fatal("stored key not reported")
	}
}

func TestMemDBMissingKey(t *testing.T) {
	db := NewMemDB()
	has, err := db.Has([]byte("absent"))
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if has {
		t.Fatal("absent key reported as present")
	}
	if _, err := db.Get([]byte("absent")); err == nil {
		t.Fatal("get on absent key succeeded")
	}
}

func TestMemDBDelete(t *testing.T) {
	db := NewMemDB()
	if err := db.Put([]byte("key"), []byte("value")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := db.Delete([]byte("key")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	has, err := db.Has([]byte("key"))
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if has {
		t.Fatal("deleted key still present")
	}
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	value := []byte("value")
	if err := db.Put([]byte("key"), value); err != nil {
		t.Fatalf("put: %v", err)
	}
	value[0] = 'X'
	got, err := db.Get([]byte("key"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "value" {
		t.Fatal("stored value aliases the caller's slice")
	}
	got[0] = 'Y'
	again, err := db.Get([]byte("key"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(again) != "value" {
		t.Fatal("returned value aliases the stored slice")
	}
}

func TestLevelDBRoundTrip(t *testing.T) {
	db, err := NewLevelDB(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if err := db.Put([]byte("key"), []byte("value")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := db.Get([]byte("key"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "value" {
		t.Fatalf("got %q, want %q", got, "value")
	}
	if err := db.Delete([]byte("key")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	has, err := db.Has([]byte("key"))
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if has {
		t.Fatal("deleted key still present")
	}
}
