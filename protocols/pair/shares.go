package pair

import (
	"fmt"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TotalSupply returns the number of outstanding liquidity shares.
func (p *Pair) TotalSupply() *uint256.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.totalSupply.Clone()
}

// BalanceOf returns holder's liquidity shares.
func (p *Pair) BalanceOf(holder common.Address) *uint256.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.balanceLocked(holder)
}

// Allowance returns how many of owner's shares spender may still move.
func (p *Pair) Allowance(owner, spender common.Address) *uint256.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.allowances[owner][spender]; ok {
		return v.Clone()
	}
	return new(uint256.Int)
}

// Transfer moves shares between holders. Reserves and total supply are unchanged.
func (p *Pair) Transfer(from, to common.Address, amount *uint256.Int) error {
	return p.call("transfer", func() error {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.transferLocked(from, to, amount)
	})
}

// Approve lets spender move up to amount of owner's shares.
func (p *Pair) Approve(owner, spender common.Address, amount *uint256.Int) error {
	if spender == (common.Address{}) {
		return fmt.Errorf("%w: approve to the zero address", engine.ErrInvalidAsset)
	}
	return p.call("approve", func() error {
		p.mu.Lock()
		p.setAllowanceLocked(owner, spender, amount.Clone())
		p.mu.Unlock()
		p.host.Emit(p.address, Approval{Owner: owner, Spender: spender, Value: amount.Clone()})
		return nil
	})
}

// TransferFrom moves shares from owner to to, spending spender's allowance.
func (p *Pair) TransferFrom(spender, owner, to common.Address, amount *uint256.Int) error {
	return p.call("transferFrom", func() error {
		p.mu.Lock()
		defer p.mu.Unlock()
		allowed := p.allowances[owner][spender]
		if allowed == nil || allowed.Lt(amount) {
			return fmt.Errorf("%w: %s shares of %s for %s", engine.ErrInsufficientAllowance, p.symbol, owner.Hex(), spender.Hex())
		}
		if err := p.transferLocked(owner, to, amount); err != nil {
			return err
		}
		p.setAllowanceLocked(owner, spender, new(uint256.Int).Sub(allowed, amount))
		return nil
	})
}

func (p *Pair) transferLocked(from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return fmt.Errorf("%w: share transfer to the zero address", engine.ErrInvalidAsset)
	}
	bal := p.balanceLocked(from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s %s shares, need %s", engine.ErrInsufficientBalance, from.Hex(), bal, p.symbol, amount)
	}
	p.setBalanceLocked(from, bal.Sub(bal, amount))
	p.setBalanceLocked(to, new(uint256.Int).Add(p.balanceLocked(to), amount))
	p.host.Emit(p.address, Transfer{From: from, To: to, Value: amount.Clone()})
	return nil
}

// mintLocked creates shares for to.
func (p *Pair) mintLocked(to common.Address, amount *uint256.Int) error {
	supply, overflow := new(uint256.Int).AddOverflow(p.totalSupply, amount)
	if overflow {
		return fmt.Errorf("%w: %s share supply overflows", engine.ErrInvalidAmount, p.symbol)
	}
	p.setSupplyLocked(supply)
	p.setBalanceLocked(to, new(uint256.Int).Add(p.balanceLocked(to), amount))
	p.host.Emit(p.address, Transfer{To: to, Value: amount.Clone()})
	return nil
}

// burnLocked destroys shares held by from.
func (p *Pair) burnLocked(from common.Address, amount *uint256.Int) error {
	bal := p.balanceLocked(from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %w: %s has %s %s shares, burning %s",
			engine.ErrInvalidAmount, engine.ErrInsufficientBalance, from.Hex(), bal, p.symbol, amount)
	}
	p.setSupplyLocked(new(uint256.Int).Sub(p.totalSupply, amount))
	p.setBalanceLocked(from, bal.Sub(bal, amount))
	p.host.Emit(p.address, Transfer{From: from, Value: amount.Clone()})
	return nil
}

func (p *Pair) balanceLocked(holder common.Address) *uint256.Int {
	if v, ok := p.balances[holder]; ok {
		return v.Clone()
	}
	return new(uint256.Int)
}

func (p *Pair) setBalanceLocked(holder common.Address, v *uint256.Int) {
	prev, existed := p.balances[holder]
	p.journal(func() {
		if existed {
			p.balances[holder] = prev
		} else {
			delete(p.balances, holder)
		}
	})
	if v.IsZero() {
		delete(p.balances, holder)
		return
	}
	p.balances[holder] = v
}

func (p *Pair) setSupplyLocked(v *uint256.Int) {
	prev := p.totalSupply
	p.journal(func() { p.totalSupply = prev })
	p.totalSupply = v
}

func (p *Pair) setAllowanceLocked(owner, spender common.Address, v *uint256.Int) {
	spenders := p.allowances[owner]
	if spenders == nil {
		spenders = make(map[common.Address]*uint256.Int)
		p.allowances[owner] = spenders
	}
	prev, existed := spenders[spender]
	p.journal(func() {
		if existed {
			spenders[spender] = prev
		} else {
			delete(spenders, spender)
		}
	})
	spenders[spender] = v
}
