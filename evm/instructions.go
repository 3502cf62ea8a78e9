package evm

import (
	"math/big"

	"github.com/WizzyDev/solevm/core/types"
)

// 256-bit modular arithmetic helpers.
var (
	big0    = new(big.Int)
	tt256   = new(big.Int).Lsh(big.NewInt(1), 256)
	tt256m1 = new(big.Int).Sub(tt256, big.NewInt(1))
	tt255   = new(big.Int).Lsh(big.NewInt(1), 255)
)

func toU256(val *big.Int) *big.Int { return val.And(val, tt256m1) }

func toS256(val *big.Int) *big.Int {
	if val.Cmp(tt255) < 0 {
		return val
	}
	return new(big.Int).Sub(val, tt256)
}

func fromS256(val *big.Int) *big.Int {
	if val.Sign() >= 0 {
		return val
	}
	return new(big.Int).Add(val, tt256)
}

func addressToBig(a types.Address) *big.Int { return new(big.Int).SetBytes(a.Bytes()) }

func bigToAddress(v *big.Int) types.Address {
	var a types.Address
	b := v.Bytes()
	if len(b) > types.AddressLength {
		b = b[len(b)-types.AddressLength:]
	}
	copy(a[types.AddressLength-len(b):], b)
	return a
}

func bigToHash(v *big.Int) types.Hash {
	var h types.Hash
	b := toU256(new(big.Int).Set(v)).Bytes()
	copy(h[types.HashLength-len(b):], b)
	return h
}

func hashToBig(h types.Hash) *big.Int { return new(big.Int).SetBytes(h.Bytes()) }

// --- arithmetic ---

func opAdd(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x, y := f.Stack.Pop(), f.Stack.Peek()
	y.Add(x, y)
	toU256(y)
	return nil, nil, nil
}

func opSub(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x, y := f.Stack.Pop(), f.Stack.Peek()
	y.Sub(x, y)
	toU256(y)
	return nil, nil, nil
}

func opMul(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x, y := f.Stack.Pop(), f.Stack.Peek()
	y.Mul(x, y)
	toU256(y)
	return nil, nil, nil
}

func opDiv(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x, y := f.Stack.Pop(), f.Stack.Peek()
	if y.Sign() == 0 {
		y.SetUint64(0)
	} else {
		y.Div(x, y)
	}
	toU256(y)
	return nil, nil, nil
}

func opSdiv(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x, y := toS256(f.Stack.Pop()), toS256(f.Stack.Peek())
	if y.Sign() == 0 {
		y.SetUint64(0)
	} else {
		n := new(big.Int)
		if x.Sign()*y.Sign() < 0 {
			n.SetInt64(-1)
		} else {
			n.SetInt64(1)
		}
		res := new(big.Int).Div(new(big.Int).Abs(x), new(big.Int).Abs(y))
		res.Mul(res, n)
		y.Set(res)
	}
	toU256(y)
	return nil, nil, nil
}

func opMod(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x, y := f.Stack.Pop(), f.Stack.Peek()
	if y.Sign() == 0 {
		y.SetUint64(0)
	} else {
		y.Mod(x, y)
	}
	toU256(y)
	return nil, nil, nil
}

func opSmod(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x, y := toS256(f.Stack.Pop()), toS256(f.Stack.Peek())
	if y.Sign() == 0 {
		y.SetUint64(0)
	} else {
		n := new(big.Int)
		if x.Sign() < 0 {
			n.SetInt64(-1)
		} else {
			n.SetInt64(1)
		}
		res := new(big.Int).Mod(new(big.Int).Abs(x), new(big.Int).Abs(y))
		res.Mul(res, n)
		y.Set(res)
	}
	toU256(y)
	return nil, nil, nil
}

func opAddmod(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x, y, z := f.Stack.Pop(), f.Stack.Pop(), f.Stack.Peek()
	if z.Sign() == 0 {
		z.SetUint64(0)
	} else {
		res := new(big.Int).Add(x, y)
		res.Mod(res, z)
		z.Set(res)
	}
	toU256(z)
	return nil, nil, nil
}

func opMulmod(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x, y, z := f.Stack.Pop(), f.Stack.Pop(), f.Stack.Peek()
	if z.Sign() == 0 {
		z.SetUint64(0)
	} else {
		res := new(big.Int).Mul(x, y)
		res.Mod(res, z)
		z.Set(res)
	}
	toU256(z)
	return nil, nil, nil
}

func opExp(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	base, exponent := f.Stack.Pop(), f.Stack.Peek()
	exponent.Exp(base, exponent, tt256)
	return nil, nil, nil
}

func opSignExtend(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	back, num := f.Stack.Pop(), f.Stack.Peek()
	if back.Cmp(big.NewInt(31)) < 0 {
		bit := uint(back.Uint64()*8 + 7)
		mask := new(big.Int).Lsh(big.NewInt(1), bit)
		mask.Sub(mask, big.NewInt(1))
		if num.Bit(int(bit)) > 0 {
			num.Or(num, new(big.Int).Not(mask))
			toU256(num)
		} else {
			num.And(num, mask)
		}
	}
	return nil, nil, nil
}

func opLt(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x, y := f.Stack.Pop(), f.Stack.Peek()
	if x.Cmp(y) < 0 {
		y.SetUint64(1)
	} else {
		y.SetUint64(0)
	}
	return nil, nil, nil
}

func opGt(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x, y := f.Stack.Pop(), f.Stack.Peek()
	if x.Cmp(y) > 0 {
		y.SetUint64(1)
	} else {
		y.SetUint64(0)
	}
	return nil, nil, nil
}

func opSlt(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x, y := toS256(f.Stack.Pop()), toS256(f.Stack.Peek())
	r := x.Cmp(y) < 0
	if r {
		y.SetUint64(1)
	} else {
		y.SetUint64(0)
	}
	return nil, nil, nil
}

func opSgt(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x, y := toS256(f.Stack.Pop()), toS256(f.Stack.Peek())
	r := x.Cmp(y) > 0
	if r {
		y.SetUint64(1)
	} else {
		y.SetUint64(0)
	}
	return nil, nil, nil
}

func opEq(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x, y := f.Stack.Pop(), f.Stack.Peek()
	if x.Cmp(y) == 0 {
		y.SetUint64(1)
	} else {
		y.SetUint64(0)
	}
	return nil, nil, nil
}

func opIszero(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x := f.Stack.Peek()
	if x.Sign() == 0 {
		x.SetUint64(1)
	} else {
		x.SetUint64(0)
	}
	return nil, nil, nil
}

func opAnd(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x, y := f.Stack.Pop(), f.Stack.Peek()
	y.And(x, y)
	return nil, nil, nil
}

func opOr(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x, y := f.Stack.Pop(), f.Stack.Peek()
	y.Or(x, y)
	return nil, nil, nil
}

func opXor(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x, y := f.Stack.Pop(), f.Stack.Peek()
	y.Xor(x, y)
	return nil, nil, nil
}

func opNot(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x := f.Stack.Peek()
	toU256(x.Not(x))
	return nil, nil, nil
}

func opByte(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	th, val := f.Stack.Pop(), f.Stack.Peek()
	if th.Cmp(big.NewInt(32)) < 0 {
		b := byte(0)
		if val.BitLen() > 0 {
			idx := 31 - int(th.Uint64())
			words := val.Bytes()
			words = append(make([]byte, 32-len(words)), words...)
			b = words[idx]
		}
		val.SetUint64(uint64(b))
	} else {
		val.SetUint64(0)
	}
	return nil, nil, nil
}

func opShl(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	shift, value := f.Stack.Pop(), f.Stack.Peek()
	if shift.Cmp(big.NewInt(256)) >= 0 {
		value.SetUint64(0)
		return nil, nil, nil
	}
	value.Lsh(value, uint(shift.Uint64()))
	toU256(value)
	return nil, nil, nil
}

func opShr(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	shift, value := f.Stack.Pop(), f.Stack.Peek()
	if shift.Cmp(big.NewInt(256)) >= 0 {
		value.SetUint64(0)
		return nil, nil, nil
	}
	value.Rsh(value, uint(shift.Uint64()))
	return nil, nil, nil
}

func opSar(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	shift, value := f.Stack.Pop(), toS256(f.Stack.Peek())
	if shift.Cmp(big.NewInt(256)) >= 0 {
		if value.Sign() >= 0 {
			value.SetUint64(0)
		} else {
			value.SetInt64(-1)
		}
		toU256(value)
		return nil, nil, nil
	}
	value.Rsh(value, uint(shift.Uint64()))
	toU256(value)
	return nil, nil, nil
}

func opKeccak256(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	offset, size := f.Stack.Pop(), f.Stack.Peek()
	data := f.Memory.Get(offset.Int64(), size.Int64())
	hash := h.Keccak256(data)
	size.SetBytes(hash.Bytes())
	return nil, nil, nil
}

// --- environment ---

func opAddress(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	f.Stack.Push(addressToBig(f.Context.Address))
	return nil, nil, nil
}

func opBalance(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	addr := bigToAddress(f.Stack.Peek())
	f.Stack.Peek().Set(h.Balance(addr))
	return nil, nil, nil
}

func opOrigin(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	f.Stack.Push(addressToBig(h.Origin()))
	return nil, nil, nil
}

func opCaller(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	f.Stack.Push(addressToBig(f.Context.Caller))
	return nil, nil, nil
}

func opCallValue(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	f.Stack.Push(new(big.Int).Set(f.Context.ApparentValue))
	return nil, nil, nil
}

func opCallDataLoad(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	x := f.Stack.Peek()
	if offset, overflow := bigUint64(x); !overflow {
		data := getData(f.Input, offset, 32)
		x.SetBytes(data)
	} else {
		x.SetUint64(0)
	}
	return nil, nil, nil
}

func opCallDataSize(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	f.Stack.Push(big.NewInt(int64(len(f.Input))))
	return nil, nil, nil
}

func opCallDataCopy(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	memOffset, dataOffset, length := f.Stack.Pop(), f.Stack.Pop(), f.Stack.Pop()
	off, _ := bigUint64(dataOffset)
	data := getData(f.Input, off, length.Uint64())
	f.Memory.Set(memOffset.Uint64(), length.Uint64(), data)
	return nil, nil, nil
}

func opCodeSize(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	f.Stack.Push(big.NewInt(int64(len(f.Code))))
	return nil, nil, nil
}

func opCodeCopy(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	memOffset, codeOffset, length := f.Stack.Pop(), f.Stack.Pop(), f.Stack.Pop()
	off, _ := bigUint64(codeOffset)
	data := getData(f.Code, off, length.Uint64())
	f.Memory.Set(memOffset.Uint64(), length.Uint64(), data)
	return nil, nil, nil
}

func opGasprice(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	f.Stack.Push(new(big.Int).Set(h.GasPrice()))
	return nil, nil, nil
}

func opExtCodeSize(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	slot := f.Stack.Peek()
	slot.SetInt64(int64(h.CodeSize(bigToAddress(slot))))
	return nil, nil, nil
}

func opExtCodeCopy(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	addr := bigToAddress(f.Stack.Pop())
	memOffset, codeOffset, length := f.Stack.Pop(), f.Stack.Pop(), f.Stack.Pop()
	off, _ := bigUint64(codeOffset)
	data := getData(h.Code(addr), off, length.Uint64())
	f.Memory.Set(memOffset.Uint64(), length.Uint64(), data)
	return nil, nil, nil
}

func opReturnDataSize(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	f.Stack.Push(big.NewInt(int64(len(f.ReturnData))))
	return nil, nil, nil
}

func opReturnDataCopy(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	memOffset, dataOffset, length := f.Stack.Pop(), f.Stack.Pop(), f.Stack.Pop()
	off, overflow := bigUint64(dataOffset)
	if overflow || off+length.Uint64() > uint64(len(f.ReturnData)) {
		return nil, nil, Errored(ErrOutOfOffsetKind).AsError()
	}
	f.Memory.Set(memOffset.Uint64(), length.Uint64(), f.ReturnData[off:off+length.Uint64()])
	return nil, nil, nil
}

func opExtCodeHash(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	slot := f.Stack.Peek()
	addr := bigToAddress(slot)
	if !h.Exists(addr) || h.Deleted(addr) {
		slot.SetUint64(0)
		return nil, nil, nil
	}
	slot.SetBytes(h.CodeHash(addr).Bytes())
	return nil, nil, nil
}

func opBlockhash(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	num := f.Stack.Peek()
	if num.BitLen() <= 64 {
		hash := h.BlockHash(num.Uint64())
		num.SetBytes(hash.Bytes())
	} else {
		num.SetUint64(0)
	}
	return nil, nil, nil
}

func opCoinbase(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	f.Stack.Push(new(big.Int))
	return nil, nil, nil
}

func opTimestamp(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	f.Stack.Push(toU256(new(big.Int).Set(h.BlockTimestamp())))
	return nil, nil, nil
}

func opNumber(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	f.Stack.Push(toU256(new(big.Int).Set(h.BlockNumber())))
	return nil, nil, nil
}

func opDifficulty(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	f.Stack.Push(new(big.Int))
	return nil, nil, nil
}

func opGasLimit(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	f.Stack.Push(new(big.Int).SetUint64(0xffffffffffffffff))
	return nil, nil, nil
}

func opChainID(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	f.Stack.Push(new(big.Int).SetUint64(h.ChainID()))
	return nil, nil, nil
}

func opSelfBalance(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	f.Stack.Push(new(big.Int).Set(h.Balance(f.Context.Address)))
	return nil, nil, nil
}

// --- stack/memory/storage/flow ---

func opPop(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	f.Stack.Pop()
	return nil, nil, nil
}

func opMload(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	v := f.Stack.Peek()
	v.SetBytes(f.Memory.Get(v.Int64(), 32))
	return nil, nil, nil
}

func opMstore(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	mStart, val := f.Stack.Pop(), f.Stack.Pop()
	f.Memory.Set32(mStart.Uint64(), val)
	return nil, nil, nil
}

func opMstore8(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	off, val := f.Stack.Pop(), f.Stack.Pop()
	f.Memory.GetPtr(int64(off.Uint64()), 1)[0] = byte(val.Uint64())
	return nil, nil, nil
}

func opSload(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	loc := f.Stack.Peek()
	loc.Set(h.Storage(f.Context.Address, loc))
	return nil, nil, nil
}

func opSstore(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	loc, val := f.Stack.Pop(), f.Stack.Pop()
	h.SetStorage(f.Context.Address, loc, val)
	return nil, nil, nil
}

func opJump(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	pos := f.Stack.Pop()
	if !f.validJumpdest(pos) {
		return nil, nil, Errored(ErrInvalidJumpKind).AsError()
	}
	*pc = pos.Uint64()
	return nil, nil, nil
}

func opJumpi(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	pos, cond := f.Stack.Pop(), f.Stack.Pop()
	if cond.Sign() != 0 {
		if !f.validJumpdest(pos) {
			return nil, nil, Errored(ErrInvalidJumpKind).AsError()
		}
		*pc = pos.Uint64()
		return nil, nil, nil
	}
	*pc++
	return nil, nil, nil
}

func opJumpdest(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	return nil, nil, nil
}

func opPc(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	f.Stack.Push(new(big.Int).SetUint64(*pc))
	return nil, nil, nil
}

func opMsize(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	f.Stack.Push(big.NewInt(int64(f.Memory.Len())))
	return nil, nil, nil
}

func opGas(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	f.Stack.Push(new(big.Int).SetUint64(f.Gas))
	return nil, nil, nil
}

func opStop(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	return nil, nil, nil
}

func opReturn(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	offset, size := f.Stack.Pop(), f.Stack.Pop()
	return f.Memory.Get(offset.Int64(), size.Int64()), nil, nil
}

func opRevert(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	offset, size := f.Stack.Pop(), f.Stack.Pop()
	return f.Memory.Get(offset.Int64(), size.Int64()), nil, nil
}

func opInvalid(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	return nil, nil, Errored(ErrDesignatedInvalidKind).AsError()
}

func opSelfdestruct(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	target := bigToAddress(f.Stack.Pop())
	if err := h.MarkDelete(f.Context.Address, target); err != nil {
		return nil, nil, err
	}
	return nil, nil, nil
}

// --- PUSH/DUP/SWAP families ---

func makePush(n int) executionFunc {
	return func(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
		start := *pc + 1
		end := start + uint64(n)
		var codeSlice []byte
		if end > uint64(len(f.Code)) {
			codeSlice = getData(f.Code, start, uint64(n))
		} else {
			codeSlice = f.Code[start:end]
		}
		f.Stack.Push(new(big.Int).SetBytes(codeSlice))
		*pc += uint64(n)
		return nil, nil, nil
	}
}

func makeDup(n int) executionFunc {
	return func(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
		f.Stack.Dup(n)
		return nil, nil, nil
	}
}

func makeSwap(n int) executionFunc {
	return func(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
		f.Stack.Swap(n)
		return nil, nil, nil
	}
}

func makeLog(n int) executionFunc {
	return func(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
		mStart, mSize := f.Stack.Pop(), f.Stack.Pop()
		topics := make([]types.Hash, n)
		for i := 0; i < n; i++ {
			topics[i] = bigToHash(f.Stack.Pop())
		}
		data := f.Memory.Get(mStart.Int64(), mSize.Int64())
		h.Log(f.Context.Address, topics, data)
		return nil, nil, nil
	}
}

// --- CALL/CREATE family: never recurse, always trap ---

func opCreate(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	return doCreate(h, f, SchemeLegacy, nil)
}

func opCreate2(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	value, offset, size, salt := f.Stack.Pop(), f.Stack.Pop(), f.Stack.Pop(), f.Stack.Pop()
	initCode := f.Memory.Get(offset.Int64(), size.Int64())
	codeHash := h.Keccak256(initCode)
	trap, exit := h.Create(f.Context.Address, CreateScheme{Kind: SchemeCreate2, Salt: salt, CodeHash: codeHash}, value, initCode)
	if exit != nil {
		f.Stack.Push(big0Copy())
		return nil, nil, nil
	}
	return nil, &trapSignal{create: &trap}, nil
}

func doCreate(h Handler, f *Frame, kind CreateSchemeKind, fixed *types.Address) ([]byte, *trapSignal, error) {
	value, offset, size := f.Stack.Pop(), f.Stack.Pop(), f.Stack.Pop()
	initCode := f.Memory.Get(offset.Int64(), size.Int64())
	scheme := CreateScheme{Kind: kind}
	if fixed != nil {
		scheme.Fixed = *fixed
	}
	trap, exit := h.Create(f.Context.Address, scheme, value, initCode)
	if exit != nil {
		f.Stack.Push(big0Copy())
		return nil, nil, nil
	}
	return nil, &trapSignal{create: &trap}, nil
}

func big0Copy() *big.Int { return new(big.Int) }

func opCall(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	return doCall(h, f, false, false, false)
}

func opCallCode(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	return doCall(h, f, true, false, false)
}

func opDelegateCall(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	return doCall(h, f, true, true, false)
}

func opStaticCall(pc *uint64, h Handler, f *Frame) ([]byte, *trapSignal, error) {
	return doCall(h, f, false, false, true)
}

// doCall pops the CALL-family stack layout (which varies: CALL/CALLCODE
// carry a value argument, DELEGATECALL/STATICCALL do not) and asks the
// Handler to either resolve immediately (precompile) or hand back a
// CallInterrupt trap for the Machine to push a child Frame for.
func doCall(h Handler, f *Frame, codeAtSelf, delegate, static bool) ([]byte, *trapSignal, error) {
	gas := f.Stack.Pop()
	addr := bigToAddress(f.Stack.Pop())
	var value *big.Int
	if !delegate && !static {
		value = f.Stack.Pop()
	} else {
		value = new(big.Int)
	}
	inOffset, inSize := f.Stack.Pop(), f.Stack.Pop()
	retOffset, retSize := f.Stack.Pop(), f.Stack.Pop()
	input := f.Memory.Get(inOffset.Int64(), inSize.Int64())

	ctx := f.Context
	var transfer *Transfer
	switch {
	case delegate:
		// DELEGATECALL: address/value/caller stay as the parent's.
	case codeAtSelf:
		// CALLCODE: executes target's code in self's context.
		ctx = Context{Address: f.Context.Address, Caller: f.Context.Address, ApparentValue: value}
		transfer = nil
	default:
		ctx = Context{Address: addr, Caller: f.Context.Address, ApparentValue: value}
		if value.Sign() != 0 {
			transfer = &Transfer{Source: f.Context.Address, Target: addr, Value: value}
		}
	}

	targetGas := callGasBudget(f.Gas, gas.Uint64())
	trap, exit, ret := h.Call(addr, transfer, input, targetGas, static, ctx)
	if exit != nil {
		success := exit.IsSucceed()
		copySize := retSize.Uint64()
		if uint64(len(ret)) < copySize {
			copySize = uint64(len(ret))
		}
		f.Memory.Set(retOffset.Uint64(), copySize, ret[:copySize])
		f.ReturnData = ret
		result := big0Copy()
		if success {
			result.SetUint64(1)
		}
		f.Stack.Push(result)
		return nil, nil, nil
	}
	trap.TargetGas = targetGas
	trap.RetOffset = retOffset.Uint64()
	trap.RetLength = retSize.Uint64()
	return nil, &trapSignal{call: &trap}, nil
}

// --- shared helpers ---

func bigUint64(v *big.Int) (uint64, bool) {
	if !v.IsUint64() {
		return 0, true
	}
	return v.Uint64(), false
}

// getData returns len bytes from data starting at offset, zero-padded
// past the end (matches the yellow paper's implicit zero extension for
// CALLDATACOPY/CODECOPY/CALLDATALOAD).
func getData(data []byte, offset, length uint64) []byte {
	out := make([]byte, length)
	if offset > uint64(len(data)) {
		return out
	}
	end := offset + length
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	copy(out, data[offset:end])
	return out
}
