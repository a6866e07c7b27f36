// Package invoicegen generates invoice and order-confirmation documents
// for an online firewood shop: it assembles normalized invoice data from
// partial order records, renders German HTML invoices from templates,
// and captures PDF or PNG output through a supervised headless browser.
//
// The entry point is Service. Create it once over the persistence
// collaborators and share it; the browser process is launched lazily on
// the first render and relaunched transparently when it dies:
//
//	svc, err := invoicegen.New(stores,
//		invoicegen.WithLogger(log),
//		invoicegen.WithTimeout(90*time.Second),
//	)
//	if err != nil {
//		return err
//	}
//	defer svc.Close()
//
//	pdf, err := svc.GeneratePDF(ctx, invoicegen.DocumentRef{OrderID: id}, "", invoicegen.RenderOptions{})
//
// Document numbers are allocated collision-free from a persisted counter
// (see NumberAllocator); totals are reconciled from the order's stored
// gross amount, never recomputed from line items.
package invoicegen
