package runtime

import "sort"

// The symbol registry maps every stable ABI name to the Go function that
// implements it. The compiler facade resolves external references against
// this table when finalising a JIT module and emits its key set as the
// AOT link manifest. Entries are installed here and by package inits
// (the FFI table registers its own); nothing mutates the table after
// program start.
var symbolRegistry = map[string]any{
	// Memory
	"bolide_alloc":           Alloc,
	"bolide_free":            Free,
	"bolide_block_store_i64": BlockStoreI64,
	"bolide_block_load_i64":  BlockLoadI64,
	"bolide_slot_retain":     RetainSlot,
	"bolide_slot_release":    ReleaseSlot,
	"bolide_slot_ref_count":  SlotRefCount,
	"bolide_object_alloc":    ObjectAlloc,
	"bolide_object_retain":   ObjectRetain,
	"bolide_object_release":  ObjectRelease,
	"bolide_object_clone":    ObjectClone,

	// BigInt
	"bolide_bigint_from_i64":    BigIntFromI64,
	"bolide_bigint_from_str":    BigIntFromString,
	"bolide_bigint_retain":      BigIntRetain,
	"bolide_bigint_release":     BigIntRelease,
	"bolide_bigint_clone":       BigIntClone,
	"bolide_bigint_to_i64":      BigIntToI64,
	"bolide_bigint_to_f64":      BigIntToF64,
	"bolide_bigint_add":         BigIntAdd,
	"bolide_bigint_sub":         BigIntSub,
	"bolide_bigint_mul":         BigIntMul,
	"bolide_bigint_div":         BigIntDiv,
	"bolide_bigint_rem":         BigIntRem,
	"bolide_bigint_neg":         BigIntNeg,
	"bolide_bigint_eq":          BigIntEq,
	"bolide_bigint_ne":          BigIntNe,
	"bolide_bigint_lt":          BigIntLt,
	"bolide_bigint_le":          BigIntLe,
	"bolide_bigint_gt":          BigIntGt,
	"bolide_bigint_ge":          BigIntGe,
	"bolide_bigint_ref_count":   BigIntRefCount,
	"bolide_bigint_debug_stats": BigIntDebugStats,
	"bolide_bigint_reset_stats": BigIntResetStats,

	// Decimal
	"bolide_decimal_from_i64":  DecimalFromI64,
	"bolide_decimal_from_f64":  DecimalFromF64,
	"bolide_decimal_from_str":  DecimalFromString,
	"bolide_decimal_retain":    DecimalRetain,
	"bolide_decimal_release":   DecimalRelease,
	"bolide_decimal_clone":     DecimalClone,
	"bolide_decimal_to_i64":    DecimalToI64,
	"bolide_decimal_to_f64":    DecimalToF64,
	"bolide_decimal_add":       DecimalAdd,
	"bolide_decimal_sub":       DecimalSub,
	"bolide_decimal_mul":       DecimalMul,
	"bolide_decimal_div":       DecimalDiv,
	"bolide_decimal_rem":       DecimalRem,
	"bolide_decimal_neg":       DecimalNeg,
	"bolide_decimal_abs":       DecimalAbs,
	"bolide_decimal_floor":     DecimalFloor,
	"bolide_decimal_ceil":      DecimalCeil,
	"bolide_decimal_round":     DecimalRound,
	"bolide_decimal_round_dp":  DecimalRoundDP,
	"bolide_decimal_eq":        DecimalEq,
	"bolide_decimal_ne":        DecimalNe,
	"bolide_decimal_lt":        DecimalLt,
	"bolide_decimal_le":        DecimalLe,
	"bolide_decimal_gt":        DecimalGt,
	"bolide_decimal_ge":        DecimalGe,
	"bolide_decimal_ref_count": DecimalRefCount,

	// String
	"bolide_string_new":       StringNew,
	"bolide_string_len":       StringLen,
	"bolide_string_concat":    StringConcat,
	"bolide_string_eq":        StringEq,
	"bolide_string_compare":   StringCompare,
	"bolide_string_retain":    StringRetain,
	"bolide_string_release":   StringRelease,
	"bolide_string_clone":     StringClone,
	"bolide_string_ref_count": StringRefCount,

	// Dynamic
	"bolide_dynamic_from_i64":       DynamicFromI64,
	"bolide_dynamic_from_f64":       DynamicFromF64,
	"bolide_dynamic_from_bool":      DynamicFromBool,
	"bolide_dynamic_from_ref":       DynamicFromRef,
	"bolide_dynamic_to_i64":         DynamicToI64,
	"bolide_dynamic_to_f64":         DynamicToF64,
	"bolide_dynamic_to_bool":        DynamicToBool,
	"bolide_dynamic_to_ref":         DynamicToRef,
	"bolide_dynamic_retain":         DynamicRetain,
	"bolide_dynamic_release":        DynamicRelease,
	"bolide_dynamic_clone":          DynamicClone,
	"bolide_dynamic_to_string_repr": DynamicRepr,

	// List / Tuple
	"bolide_list_new":          ListNew,
	"bolide_list_new_refs":     ListNewRefs,
	"bolide_list_get":          ListGet,
	"bolide_list_set":          ListSet,
	"bolide_list_append":       ListAppend,
	"bolide_list_len":          ListLen,
	"bolide_list_retain":       ListRetain,
	"bolide_list_free":         ListRelease,
	"bolide_tuple_new":         TupleNew,
	"bolide_tuple_get":         TupleGet,
	"bolide_tuple_set":         TupleSet,
	"bolide_tuple_len":         TupleLen,
	"bolide_tuple_retain":      TupleRetain,
	"bolide_tuple_free":        TupleRelease,
	"bolide_tuple_debug_stats": TupleDebugStats,
	"bolide_tuple_reset_stats": TupleResetStats,

	// Object fields and weak references
	"bolide_object_field_get":     ObjectFieldGet,
	"bolide_object_field_set":     ObjectFieldSet,
	"bolide_object_field_set_ref": ObjectFieldSetRef,
	"bolide_object_ref_count":     ObjectRefCount,
	"bolide_object_weak_retain":   ObjectWeakRetain,
	"bolide_object_weak_release":  ObjectWeakRelease,
	"bolide_object_weak_upgrade":  ObjectWeakUpgrade,

	// Print
	"bolide_print_int":            PrintInt,
	"bolide_print_int_inline":     PrintIntInline,
	"bolide_print_float":          PrintFloat,
	"bolide_print_float_inline":   PrintFloatInline,
	"bolide_print_bool":           PrintBool,
	"bolide_print_bool_inline":    PrintBoolInline,
	"bolide_print_bigint":         PrintBigInt,
	"bolide_print_bigint_inline":  PrintBigIntInline,
	"bolide_print_decimal":        PrintDecimal,
	"bolide_print_decimal_inline": PrintDecimalInline,
	"bolide_print_string":         PrintString,
	"bolide_print_string_inline":  PrintStringInline,
	"bolide_print_dynamic":        PrintDynamic,
	"bolide_print_dynamic_inline": PrintDynamicInline,
	"bolide_print_tuple":          PrintTuple,
	"bolide_print_tuple_inline":   PrintTupleInline,
	"bolide_println":              Println,

	// Thread pool and futures
	"bolide_pool_create":      PoolEnter,
	"bolide_pool_destroy":     PoolExit,
	"bolide_spawn":            Spawn,
	"bolide_future_await":     (*Future).Await,
	"bolide_future_completed": (*Future).Completed,

	// Channels and select
	"bolide_channel_create":          NewChannel,
	"bolide_channel_create_buffered": NewChannelBuffered,
	"bolide_channel_send":            (*Channel).Send,
	"bolide_channel_recv":            (*Channel).Recv,
	"bolide_channel_try_recv":        (*Channel).TryRecv,
	"bolide_channel_close":           (*Channel).Close,
	"bolide_channel_is_closed":       (*Channel).IsClosed,
	"bolide_channel_free":            ChannelFree,
	"bolide_channel_select":          SelectSlots,
}

// RegisterSymbol adds an ABI symbol provided by another runtime package
// (the FFI table registers its entry points this way at init). Existing
// names are never overwritten.
func RegisterSymbol(name string, impl any) {
	if _, ok := symbolRegistry[name]; !ok {
		symbolRegistry[name] = impl
	}
}

// LookupSymbol returns the implementation registered under an ABI name,
// nil when the name is unknown.
func LookupSymbol(name string) any {
	return symbolRegistry[name]
}

// HasSymbol reports whether an ABI name is registered.
func HasSymbol(name string) bool {
	_, ok := symbolRegistry[name]
	return ok
}

// SymbolNames returns every registered ABI name, sorted.
func SymbolNames() []string {
	names := make([]string, 0, len(symbolRegistry))
	for name := range symbolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
