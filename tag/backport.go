package tag

// Backport2012 rewrites types to the member/version shape a 2012-era
// consumer expects (spec.md section 4.J). It is a fixed set of named
// edits, not a generic migration engine — the same shape as a
// version-to-version schema rewrite over a small, known type list.
// Types absent from the schema, or already at or below the target
// version, are left untouched. It returns the type list with the
// now-unreferenced types named in section 4.J removed; callers should
// keep using the returned slice in place of the one they passed in.
func Backport2012(types []*Type) []*Type {
	byName := make(map[string]*Type, len(types))
	for _, t := range types {
		if t != nil {
			byName[t.Name] = t
		}
	}

	if t := byName["hkReferencedObject"]; t != nil && t.Version > 0 {
		dropMember(t, "propertyBag")
		renameMember(t, "refCount", "referenceCount")
		t.Version = 0
		t.invalidateMemberCache()
	}
	types = dropTypesNamed(types, byName, func(name string) bool {
		switch name {
		case "hkDefaultPropertyBag", "hkPropertyId", "hkPtrAndInt", "hkPropertyDesc", "hkTuple":
			return true
		}
		return hasPrefix(name, "hkHash")
	})

	if t := byName["hkxMeshSection"]; t != nil && t.Version > 4 {
		dropMember(t, "boneMatrixMap")
		t.Version = 4
		t.invalidateMemberCache()
	}
	if t := byName["hkxVertexBuffer::VertexData"]; t != nil && t.Version > 0 {
		t.Version = 0
	}
	if t := byName["hkxVertexDescription::ElementDecl"]; t != nil && t.Version > 3 {
		dropMember(t, "channelID")
		t.Version = 3
		t.invalidateMemberCache()
	}
	if t := byName["hkxMaterial"]; t != nil && t.Version > 4 {
		dropMember(t, "userData")
		t.Version = 4
		t.invalidateMemberCache()
	}
	if t := byName["hkaSkeleton"]; t != nil && t.Version > 5 {
		t.Version = 5
	}
	if t := byName["hkcdStaticMeshTreeBase"]; t != nil && t.Version > 0 {
		dropMember(t, "primitiveStoresIsFlatConvex")
		t.Version = 0
		t.invalidateMemberCache()
	}
	if t := byName["hkaInterleavedUncompressedAnimation"]; t != nil && t.Version > 0 {
		t.Version = 0
	}
	if t := byName["hkpStaticCompoundShape"]; t != nil {
		instances := memberOf(t, "instanceExtraInfos")
		bits := memberIndex(t, "numBitsForChildShapeKey")
		if instances != nil && bits >= 0 {
			t.Members[bits].DisplayType = instances.Type.SuperType().SubType
			t.invalidateMemberCache()
		}
	}
	if t := byName["hkpStaticCompoundShape::Instance"]; t != nil && t.Version > 0 {
		t.Version = 0
	}

	return types
}

func dropMember(t *Type, name string) {
	idx := memberIndex(t, name)
	if idx < 0 {
		return
	}
	t.Members = append(t.Members[:idx], t.Members[idx+1:]...)
}

func renameMember(t *Type, oldName, newName string) {
	if idx := memberIndex(t, oldName); idx >= 0 {
		t.Members[idx].Name = newName
	}
}

func memberIndex(t *Type, name string) int {
	for i, m := range t.Members {
		if m.Name == name {
			return i
		}
	}
	return -1
}

func memberOf(t *Type, name string) *Member {
	if idx := memberIndex(t, name); idx >= 0 {
		return &t.Members[idx]
	}
	return nil
}

// dropTypesNamed returns types with every entry matching shouldDrop
// removed, clearing its byName entry too so later lookups correctly see
// it as absent (spec.md section 4.J: "missing types are silently
// skipped").
func dropTypesNamed(types []*Type, byName map[string]*Type, shouldDrop func(string) bool) []*Type {
	out := types[:0]
	for _, t := range types {
		if t != nil && shouldDrop(t.Name) {
			delete(byName, t.Name)
			continue
		}
		out = append(out, t)
	}
	return out
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
