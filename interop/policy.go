package interop

// The getters below return the effective filtering parameter for a NIB: the
// NIB's own override when it has one, else the NetIO default. A nil NIB gets
// the default.

func (n *NetIO) MaxEntityRange(nib *Nib) float64 {
	if nib != nil && nib.thresholds.MaxEntityRange != nil {
		return *nib.thresholds.MaxEntityRange
	}
	return n.maxEntityRange
}

// MaxEntityRangeSquared is MaxEntityRange squared; 0 still means unlimited.
func (n *NetIO) MaxEntityRangeSquared(nib *Nib) float64 {
	r := n.MaxEntityRange(nib)
	return r * r
}

func (n *NetIO) MaxTimeDR(nib *Nib) float64 {
	if nib != nil && nib.thresholds.MaxTimeDR != nil {
		return *nib.thresholds.MaxTimeDR
	}
	return n.maxTimeDR
}

func (n *NetIO) MaxPositionErr(nib *Nib) float64 {
	if nib != nil && nib.thresholds.MaxPositionError != nil {
		return *nib.thresholds.MaxPositionError
	}
	return n.maxPositionErr
}

func (n *NetIO) MaxOrientationErr(nib *Nib) float64 {
	if nib != nil && nib.thresholds.MaxOrientationError != nil {
		return *nib.thresholds.MaxOrientationError
	}
	return n.maxOrientationErr
}

func (n *NetIO) MaxAge(nib *Nib) float64 {
	if nib != nil && nib.thresholds.MaxAge != nil {
		return *nib.thresholds.MaxAge
	}
	return n.maxAge
}

// filterThresholds returns the configured overrides for an entity type. A
// filter naming the exact domain takes precedence over a kind-wide one.
func (n *NetIO) filterThresholds(et EntityType) Thresholds {
	var exact, kindWide *FilterConfig
	for i := range n.filters {
		f := &n.filters[i]
		if f.Kind != et.Kind {
			continue
		}
		switch {
		case f.Domain == et.Domain && f.Domain != 0 && exact == nil:
			exact = f
		case f.Domain == 0 && kindWide == nil:
			kindWide = f
		}
	}
	var t Thresholds
	if exact != nil {
		t = exact.Thresholds()
	}
	if kindWide != nil {
		t = t.merge(kindWide.Thresholds())
	}
	return t
}

// shouldSend decides whether an output NIB must transmit state, the player's
// current state. The returned reason is empty when the update is suppressed.
// Caller holds the output table lock.
func (n *NetIO) shouldSend(nib *Nib, state EntityState, now float64) string {
	if !nib.sent {
		return "initial"
	}
	if now-nib.lastTime > n.MaxTimeDR(nib) {
		return "heartbeat"
	}
	predicted := nib.Extrapolate(now)
	if PositionError(predicted, state) > n.MaxPositionErr(nib) {
		return "position"
	}
	if OrientationError(predicted, state) > n.MaxOrientationErr(nib) {
		return "orientation"
	}
	return ""
}

// isStale reports whether an input NIB has gone without updates for longer
// than its max age. Caller holds the input table lock.
func (n *NetIO) isStale(nib *Nib, now float64) bool {
	return now-nib.lastTime > n.MaxAge(nib)
}
