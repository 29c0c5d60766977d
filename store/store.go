package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/canopy-network/dpos/lib"
	"github.com/dgraph-io/badger/v4"
)

/*
	BlockStore is a delegate's committed chain, held in an in-memory badger instance.

	Keys are lexicographically ordered by prefix:
	  - hash/<block hash>     -> canonical block bytes
	  - height/<big endian>   -> hash key of the block at that height
	  - last                  -> big endian height of the chain head
	All keys of a block are written in a single badger transaction.
*/

var (
	blockHashPrefix   = []byte{1}
	blockHeightPrefix = []byte{2}
	lastHeightKey     = []byte{3}

	delim = []byte("/")
)

// BlockStore indexes committed blocks by height and by hash
type BlockStore struct {
	db  *badger.DB
	log lib.LoggerI
}

// NewBlockStore() opens an in-memory store
func NewBlockStore(config lib.StoreConfig, log lib.LoggerI) (*BlockStore, lib.ErrorI) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR)
	if config.MemTableSize > 0 {
		opts = opts.WithMemTableSize(config.MemTableSize)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, ErrOpenDB(err)
	}
	return &BlockStore{db: db, log: log}, nil
}

// IndexBlock() stores a committed block under its hash and height and advances the head if higher
func (s *BlockStore) IndexBlock(b *lib.Block) lib.ErrorI {
	if b == nil {
		return lib.ErrNilBlock()
	}
	hashKey := s.blockHashKey(b.Hash())
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(hashKey, b.Bytes()); err != nil {
			return err
		}
		if err := txn.Set(s.blockHeightKey(b.Height), hashKey); err != nil {
			return err
		}
		last, err := getHeight(txn)
		if err != nil {
			return err
		}
		if b.Height > last {
			return txn.Set(lastHeightKey, encodeHeight(b.Height))
		}
		return nil
	})
	if err != nil {
		return ErrStoreSet(err)
	}
	return nil
}

// GetBlockByHeight() returns the block committed at a height
func (s *BlockStore) GetBlockByHeight(height uint64) (*lib.Block, lib.ErrorI) {
	var bz []byte
	err := s.db.View(func(txn *badger.Txn) (err error) {
		hashKey, err := get(txn, s.blockHeightKey(height))
		if err != nil {
			return err
		}
		bz, err = get(txn, hashKey)
		return
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrBlockNotFound(fmt.Sprintf("at height %d", height))
	}
	if err != nil {
		return nil, ErrStoreGet(err)
	}
	return lib.UnmarshalBlock(bz)
}

// GetBlockByHash() returns the block with the hash
func (s *BlockStore) GetBlockByHash(hash []byte) (*lib.Block, lib.ErrorI) {
	var bz []byte
	err := s.db.View(func(txn *badger.Txn) (err error) {
		bz, err = get(txn, s.blockHashKey(hash))
		return
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrBlockNotFound(lib.HexBytes(hash).String())
	}
	if err != nil {
		return nil, ErrStoreGet(err)
	}
	return lib.UnmarshalBlock(bz)
}

// GetBlocks() returns up to limit blocks in ascending height, starting at from
func (s *BlockStore) GetBlocks(from uint64, limit int) (blocks []*lib.Block, e lib.ErrorI) {
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := joinKey(blockHeightPrefix, delim)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Seek(s.blockHeightKey(from)); it.ValidForPrefix(prefix) && (limit <= 0 || len(blocks) < limit); it.Next() {
			hashKey, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			bz, err := get(txn, hashKey)
			if err != nil {
				return err
			}
			block, er := lib.UnmarshalBlock(bz)
			if er != nil {
				return er
			}
			blocks = append(blocks, block)
		}
		return nil
	})
	if err != nil {
		return nil, ErrStoreGet(err)
	}
	return
}

// LastHeight() is the height of the highest indexed block, 0 for an empty chain
func (s *BlockStore) LastHeight() (height uint64, e lib.ErrorI) {
	err := s.db.View(func(txn *badger.Txn) (err error) {
		height, err = getHeight(txn)
		return
	})
	if err != nil {
		return 0, ErrStoreGet(err)
	}
	return
}

// Close() releases the database
func (s *BlockStore) Close() lib.ErrorI {
	if err := s.db.Close(); err != nil {
		return ErrCloseDB(err)
	}
	return nil
}

func (s *BlockStore) blockHashKey(hash []byte) []byte {
	return joinKey(blockHashPrefix, delim, hash)
}

func (s *BlockStore) blockHeightKey(height uint64) []byte {
	return joinKey(blockHeightPrefix, delim, encodeHeight(height))
}

func get(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func getHeight(txn *badger.Txn) (uint64, error) {
	bz, err := get(txn, lastHeightKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(bz), nil
}

func encodeHeight(height uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, height)
}

// joinKey() concatenates key segments into a fresh slice
func joinKey(parts ...[]byte) (key []byte) {
	for _, p := range parts {
		key = append(key, p...)
	}
	return
}
