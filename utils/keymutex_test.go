package utils

import (
	"sync"
	"testing"
)

func TestKeyMutexSerializesSameKey(t *testing.T) {
	km := NewKeyMutex()
	counter := 0
	var wg sync.WaitGroup

	// 同一键下的并发自增必须串行
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("auction:1")
			counter++
			km.Unlock("auction:1")
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Fatalf("期望100，得到: %d", counter)
	}
}

func TestKeyMutexIndependentKeys(t *testing.T) {
	km := NewKeyMutex()

	// 不同键互不阻塞：持有a锁时仍能拿到b锁
	km.Lock("a")
	done := make(chan struct{})
	go func() {
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()
	<-done
	km.Unlock("a")
}
