package usecase

// KeyedLockCount returns the number of live per-note lock entries
func (uc *EmbeddingUseCase) KeyedLockCount() int {
	return uc.locks.size()
}
