package identity

import "time"

const defaultLease = 10 * time.Minute

// Built-in job identities.
var (
	// SynLocalOrderToTPL pushes domestic orders to the third-party logistics provider.
	SynLocalOrderToTPL = New("SYN_LOCAL_ORDER_TO_TPL", DefaultMarker, defaultLease)
	// SynGetOrderStatusFromFPX pulls order status from 4PX.
	SynGetOrderStatusFromFPX = New("SYN_GET_ORDER_STATUS_FROM_FPX", DefaultMarker, defaultLease)
	// FetchOrderToBaseFeeVoucher fetches orders into base fee vouchers.
	FetchOrderToBaseFeeVoucher = New("FETCH_ORDER_TO_BASE_FEE_VOUCHER", DefaultMarker, defaultLease)
	// FetchOrderCalculate computes billing documents.
	FetchOrderCalculate = New("FETCH_ORDER_CALCULATE", DefaultMarker, defaultLease)
	// ScmPushERPData pushes SCM staging rows to the ERP.
	ScmPushERPData = New("SCM_PUSH_ERP_DATA", DefaultMarker, defaultLease)
	// ScmPushOrderStatus pushes order status from SCM to internal systems.
	ScmPushOrderStatus = New("SCM_PUSH_ORDER_STATUS", DefaultMarker, defaultLease)
	// PushSOToBD pushes sales orders to BD.
	PushSOToBD = New("PUSH_SO_TO_BD", DefaultMarker, defaultLease)
	// FetchSOFromBD queries sales order status from BD.
	FetchSOFromBD = New("FETCH_SO_FROM_BD", DefaultMarker, defaultLease)
)

// Catalog returns the built-in identities in declaration order.
func Catalog() []Identity {
	return []Identity{
		SynLocalOrderToTPL,
		SynGetOrderStatusFromFPX,
		FetchOrderToBaseFeeVoucher,
		FetchOrderCalculate,
		ScmPushERPData,
		ScmPushOrderStatus,
		PushSOToBD,
		FetchSOFromBD,
	}
}

// Default is the registry of the built-in catalog. It panics at package
// initialization if the catalog ever carries a duplicate key.
var Default = MustRegistry(Catalog()...)
