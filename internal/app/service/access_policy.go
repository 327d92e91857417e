package service

// Verdict es el resultado del chequeo atómico de políticas para una llegada.
type Verdict int

const (
	VerdictNoSession Verdict = iota
	VerdictIgnored
	VerdictRemembered
	VerdictCooldown
	VerdictNotify // cooldown ya seteado, hay que levantar un join request
)

// PolicyStore opera sobre la sesión activa del guild; sin sesión todo es no-op / false.
type PolicyStore struct {
	reg *Registry
}

func NewPolicyStore(reg *Registry) *PolicyStore { return &PolicyStore{reg: reg} }

func (p *PolicyStore) IsIgnored(guildID, userID string) (ok bool) {
	p.reg.with(guildID, func(s *session) { _, ok = s.ignored[userID] })
	return ok
}

func (p *PolicyStore) IsRemembered(guildID, userID string) (ok bool) {
	p.reg.with(guildID, func(s *session) { _, ok = s.remembered[userID] })
	return ok
}

func (p *PolicyStore) Remember(guildID, userID string) {
	p.reg.with(guildID, func(s *session) { s.remembered[userID] = struct{}{} })
}

func (p *PolicyStore) Ignore(guildID, userID string) {
	p.reg.with(guildID, func(s *session) { s.ignored[userID] = struct{}{} })
}

// IsInCooldown: expira de forma perezosa, se evalúa contra el reloj al leer.
func (p *PolicyStore) IsInCooldown(guildID, userID string) (ok bool) {
	p.reg.with(guildID, func(s *session) { ok = p.inCooldown(s, userID) })
	return ok
}

// SetCooldown pisa el timestamp con "ahora" (no extiende el anterior).
func (p *PolicyStore) SetCooldown(guildID, userID string) {
	p.reg.with(guildID, func(s *session) { s.cooldowns[userID] = p.reg.now() })
}

func (p *PolicyStore) ClearCooldown(guildID, userID string) {
	p.reg.with(guildID, func(s *session) { delete(s.cooldowns, userID) })
}

// Admit hace ignored → remembered → cooldown → set cooldown sin soltar el lock,
// así dos llegadas casi simultáneas del mismo usuario no pasan las dos.
func (p *PolicyStore) Admit(guildID, userID string) Verdict {
	v := VerdictNoSession
	p.reg.with(guildID, func(s *session) {
		if _, ok := s.ignored[userID]; ok {
			v = VerdictIgnored
			return
		}
		if _, ok := s.remembered[userID]; ok {
			v = VerdictRemembered
			return
		}
		if p.inCooldown(s, userID) {
			v = VerdictCooldown
			return
		}
		s.cooldowns[userID] = p.reg.now()
		v = VerdictNotify
	})
	return v
}

func (p *PolicyStore) inCooldown(s *session, userID string) bool {
	ts, ok := s.cooldowns[userID]
	if !ok {
		return false
	}
	return p.reg.now().Sub(ts) <= CooldownWindow
}
