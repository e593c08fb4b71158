package frame

// RequestFrame wraps a decoded request PDU with its transaction id (0 on
// RTU) and slave/unit address.
type RequestFrame struct {
	ID    uint16
	Slave byte
	PDU   RequestPdu
}

// ResponseFrame wraps a handler-produced response PDU with the transaction
// id and slave address it must be echoed back with.
type ResponseFrame struct {
	ID    uint16
	Slave byte
	PDU   ResponsePdu
}
