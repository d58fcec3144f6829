package errors

// Stable rejection reasons surfaced to clients under error.details.reason.
const (
	ReasonNotAnAuction          = "NOT_AN_AUCTION"
	ReasonAuctionNotOpen        = "AUCTION_NOT_OPEN"
	ReasonAuctionEnded          = "AUCTION_ENDED"
	ReasonSelfBiddingForbidden  = "SELF_BIDDING_FORBIDDEN"
	ReasonInvalidAmount         = "INVALID_AMOUNT"
	ReasonBidTooLow             = "BID_TOO_LOW"
	ReasonNotDirectSale         = "NOT_DIRECT_SALE"
	ReasonItemUnavailable       = "ITEM_UNAVAILABLE"
	ReasonPriceMissing          = "PRICE_MISSING"
	ReasonSelfPurchaseForbidden = "SELF_PURCHASE_FORBIDDEN"
	ReasonItemAlreadyReserved   = "ITEM_ALREADY_RESERVED"
	ReasonRequestResolved       = "REQUEST_ALREADY_RESOLVED"
	ReasonMismatch              = "MISMATCH"
	ReasonForbidden             = "FORBIDDEN"
	ReasonInvalidTransition     = "INVALID_TRANSITION"
)
